package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronedispatch/core/model"
)

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.yaml")
	data := `orders:
  - weight: 4.0
    destination: Downtown
  - id: rush
    weight: 1.5
    destination: Airport
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	require.Len(t, m.Orders, 2)
	assert.Equal(t, Order{Weight: 4, Destination: "Downtown"}, m.Orders[0])
	assert.Equal(t, "rush", m.Orders[1].ID)

	reqs := m.Requests("Warehouse")
	require.Len(t, reqs, 2)
	assert.Equal(t, model.StatusQueued, reqs[1].Status())
	assert.Equal(t, model.Location("Warehouse"), reqs[1].CurrentLocation())
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"orders":[{"weight":2,"destination":"Uptown"}]}`), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Order{{Weight: 2, Destination: "Uptown"}}, m.Orders)
}

func TestLoadUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDecodeEmptyYAML(t *testing.T) {
	m, err := Decode(strings.NewReader(""), "yaml")
	require.NoError(t, err)
	assert.Empty(t, m.Orders)
}

func TestDecodeRejectsInvalidOrders(t *testing.T) {
	cases := map[string]string{
		"zero weight":   `{"orders":[{"weight":0,"destination":"Uptown"}]}`,
		"no dest":       `{"orders":[{"weight":1}]}`,
		"duplicate ids": `{"orders":[{"id":"a","weight":1,"destination":"Uptown"},{"id":"a","weight":1,"destination":"Airport"}]}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(data), "json")
			assert.Error(t, err)
		})
	}
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("4.0:Downtown")
	require.NoError(t, err)
	assert.Equal(t, Order{Weight: 4, Destination: "Downtown"}, o)

	o, err = ParseOrder(" 2 : Airport ")
	require.NoError(t, err)
	assert.Equal(t, model.Location("Airport"), o.Destination)

	for _, bad := range []string{"Downtown", "x:Downtown", "0:Downtown", "-1:Downtown", "3:"} {
		_, err := ParseOrder(bad)
		assert.Error(t, err, bad)
	}
}
