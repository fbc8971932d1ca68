package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/pinmap/internal/core/domain"
)

const visitDateLayout = "2006-01-02"

type listPinsQuery struct {
	AuthorID string `query:"author_id" validate:"omitempty,uuid"`
	Offset   int    `query:"offset" validate:"gte=0"`
	Limit    int    `query:"limit" validate:"gte=0,lte=200"`
}

type boundsQuery struct {
	MinLat *float64 `query:"min_lat" validate:"required,latitude"`
	MinLon *float64 `query:"min_lon" validate:"required,longitude"`
	MaxLat *float64 `query:"max_lat" validate:"required,latitude"`
	MaxLon *float64 `query:"max_lon" validate:"required,longitude"`
	Cap    int      `query:"cap" validate:"gte=0"`
}

func (q boundsQuery) bounds() domain.Bounds {
	return domain.Bounds{MinLat: *q.MinLat, MinLon: *q.MinLon, MaxLat: *q.MaxLat, MaxLon: *q.MaxLon}
}

type nearbyQuery struct {
	Lat    *float64 `query:"lat" validate:"required,latitude"`
	Lon    *float64 `query:"lon" validate:"required,longitude"`
	Radius float64  `query:"radius" validate:"gte=0,lte=50000"`
	Limit  int      `query:"limit" validate:"gte=0,lte=200"`
}

type createPinRequest struct {
	Lat          *float64 `json:"lat" validate:"required,latitude"`
	Lon          *float64 `json:"lon" validate:"required,longitude"`
	LocationName string   `json:"location_name" validate:"required,max=200"`
	VisitDate    string   `json:"visit_date" validate:"omitempty,datetime=2006-01-02"`
	Notes        string   `json:"notes" validate:"max=2000"`
	PhotoURLs    []string `json:"photo_urls" validate:"max=10,dive,url"`
}

func (r createPinRequest) input() domain.PinInput {
	in := domain.PinInput{
		Location:     &domain.GeoPoint{Lat: *r.Lat, Lon: *r.Lon},
		LocationName: &r.LocationName,
		PhotoURLs:    r.PhotoURLs,
	}
	if r.Notes != "" {
		in.Notes = &r.Notes
	}
	if r.VisitDate != "" {
		if d, err := time.Parse(visitDateLayout, r.VisitDate); err == nil {
			in.VisitDate = &d
		}
	}
	return in
}

// updatePinRequest is a partial update. An empty visit_date clears it.
type updatePinRequest struct {
	Lat          *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon          *float64 `json:"lon" validate:"omitempty,longitude"`
	LocationName *string  `json:"location_name" validate:"omitempty,max=200"`
	VisitDate    *string  `json:"visit_date" validate:"omitempty,max=10"`
	Notes        *string  `json:"notes" validate:"omitempty,max=2000"`
}

func (r updatePinRequest) input() (domain.PinInput, string) {
	in := domain.PinInput{LocationName: r.LocationName, Notes: r.Notes}
	if (r.Lat == nil) != (r.Lon == nil) {
		return in, "lat and lon must be provided together"
	}
	if r.Lat != nil {
		in.Location = &domain.GeoPoint{Lat: *r.Lat, Lon: *r.Lon}
	}
	if r.VisitDate != nil {
		if *r.VisitDate == "" {
			in.ClearVisit = true
		} else {
			d, err := time.Parse(visitDateLayout, *r.VisitDate)
			if err != nil {
				return in, "visit_date must match the layout " + visitDateLayout
			}
			in.VisitDate = &d
		}
	}
	return in, ""
}

// ListPinsHandler returns the viewer's pin collection, optionally filtered
// by author.
func ListPinsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q listPinsQuery
		if msg := bindQuery(c, &q); msg != "" {
			return errBadRequest(c, msg)
		}

		pins, err := deps.Pins.ListForViewer(c.UserContext(), viewerID(c), domain.PinFilter{AuthorID: q.AuthorID})
		if err != nil {
			return errFromDomain(c, err)
		}

		page, pg := paginate(pins, q.Offset, q.Limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// VisiblePinsResponse is the culled set for one viewport.
type VisiblePinsResponse struct {
	Viewport domain.Bounds `json:"viewport"`
	Pins     []domain.Pin  `json:"pins"`
	Count    int           `json:"count"`
}

// VisiblePinsHandler returns the pins to display for a viewport, in display
// order. cap may lower the configured visible cap, never raise it.
func VisiblePinsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q boundsQuery
		if msg := bindQuery(c, &q); msg != "" {
			return errBadRequest(c, msg)
		}

		limit := deps.VisibleCap
		if q.Cap > 0 && (limit <= 0 || q.Cap < limit) {
			limit = q.Cap
		}

		vp := q.bounds()
		pins, err := deps.Pins.Visible(c.UserContext(), viewerID(c), vp, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(VisiblePinsResponse{Viewport: vp, Pins: pins, Count: len(pins)})
	}
}

// NearbyPinsHandler returns pins around a point, nearest first.
func NearbyPinsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q nearbyQuery
		if msg := bindQuery(c, &q); msg != "" {
			return errBadRequest(c, msg)
		}

		at := domain.GeoPoint{Lat: *q.Lat, Lon: *q.Lon}
		pins, err := deps.Pins.Nearby(c.UserContext(), viewerID(c), at, q.Radius, q.Limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"data": pins, "count": len(pins)})
	}
}

// GetPinHandler returns a single pin.
func GetPinHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pin, err := deps.Pins.Get(c.UserContext(), viewerID(c), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(pin)
	}
}

// CreatePinHandler stores a new pin for the viewer.
func CreatePinHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createPinRequest
		if msg := bindBody(c, &req); msg != "" {
			return errBadRequest(c, msg)
		}

		pin, err := deps.Pins.Create(c.UserContext(), viewerID(c), req.input())
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/pins/" + pin.ID)
		return c.Status(fiber.StatusCreated).JSON(pin)
	}
}

// UpdatePinHandler applies a partial update to one of the viewer's pins.
func UpdatePinHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req updatePinRequest
		if msg := bindBody(c, &req); msg != "" {
			return errBadRequest(c, msg)
		}
		in, msg := req.input()
		if msg != "" {
			return errBadRequest(c, msg)
		}

		pin, err := deps.Pins.Update(c.UserContext(), viewerID(c), c.Params("id"), in)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(pin)
	}
}

// DeletePinHandler removes one of the viewer's pins.
func DeletePinHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Pins.Delete(c.UserContext(), viewerID(c), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GalleryHandler returns the viewer's own pins, most recent visit first.
func GalleryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q pageQuery
		if msg := bindQuery(c, &q); msg != "" {
			return errBadRequest(c, msg)
		}

		pins, err := deps.Pins.Gallery(c.UserContext(), viewerID(c))
		if err != nil {
			return errFromDomain(c, err)
		}

		page, pg := paginate(pins, q.Offset, q.Limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}
