package dispatch

import (
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/core/routing"
)

// CarrierSelector picks the carrier that should serve a request. It returns
// nil and routing.Unreachable when no carrier qualifies.
type CarrierSelector interface {
	Select(carriers []*model.Carrier, r *model.Request, router routing.Router) (*model.Carrier, int)
}

// NearestSelector chooses the eligible carrier closest to the request
// destination. Ties go to the carrier listed first in the roster.
type NearestSelector struct{}

func (NearestSelector) Select(carriers []*model.Carrier, r *model.Request, router routing.Router) (*model.Carrier, int) {
	var best *model.Carrier
	shortest := routing.Unreachable
	for _, c := range carriers {
		if !c.CanCarry(r.Weight) {
			continue
		}
		d := router.ShortestDistance(c.Location(), r.Destination)
		if d < shortest {
			shortest = d
			best = c
		}
	}
	return best, shortest
}
