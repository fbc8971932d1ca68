package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/pinmap/internal/core/domain"
)

// likeRequest toggles a like, or sets it when liked is present.
type likeRequest struct {
	PinID string `json:"pin_id"`
	Liked *bool  `json:"liked"`
}

type followRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type attachPhotoRequest struct {
	URL     string `json:"url" validate:"required,url"`
	Caption string `json:"caption" validate:"max=500"`
}

// ToggleLikeHandler is the like confirmation endpoint.
func ToggleLikeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req likeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if strings.TrimSpace(req.PinID) == "" {
			return errBadRequest(c, "Pin ID required")
		}

		var (
			state *domain.LikeState
			err   error
		)
		if req.Liked != nil {
			state, err = deps.Likes.Set(c.UserContext(), viewerID(c), req.PinID, *req.Liked)
		} else {
			state, err = deps.Likes.Toggle(c.UserContext(), viewerID(c), req.PinID)
		}
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(state)
	}
}

// ToggleFollowHandler follows or unfollows another user.
func ToggleFollowHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req followRequest
		if msg := bindBody(c, &req); msg != "" {
			return errBadRequest(c, msg)
		}

		following, err := deps.Follows.Toggle(c.UserContext(), viewerID(c), req.UserID)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"user_id": req.UserID, "following": following})
	}
}

// GetProfileHandler returns a profile with follow counts.
func GetProfileHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile, err := deps.Profiles.Get(c.UserContext(), viewerID(c), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "private, max-age=30")
		return c.JSON(profile)
	}
}

// ProfilePinsHandler returns a user's pins, newest first.
func ProfilePinsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q pageQuery
		if msg := bindQuery(c, &q); msg != "" {
			return errBadRequest(c, msg)
		}

		pins, err := deps.Profiles.Pins(c.UserContext(), viewerID(c), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}

		page, pg := paginate(pins, q.Offset, q.Limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// AttachPhotoHandler adds an uploaded photo to one of the viewer's pins.
func AttachPhotoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req attachPhotoRequest
		if msg := bindBody(c, &req); msg != "" {
			return errBadRequest(c, msg)
		}

		photo, err := deps.Photos.Attach(c.UserContext(), viewerID(c), c.Params("id"), req.URL, req.Caption)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(photo)
	}
}

// DeletePhotoHandler removes a photo the viewer uploaded.
func DeletePhotoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Photos.Delete(c.UserContext(), viewerID(c), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
