package domain

import (
	"time"
)

// Pin represents a geo-tagged travel memory created by a user.
// IsMine and IsLiked are relative to the viewer the pin was loaded for.
type Pin struct {
	ID           string     `json:"id"`
	AuthorID     string     `json:"author_id"`
	AuthorName   string     `json:"author_name,omitempty"`
	Location     GeoPoint   `json:"location"`
	LocationName string     `json:"location_name,omitempty"`
	VisitDate    *time.Time `json:"visit_date,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	Photos       []Photo    `json:"photos"`
	LikeCount    int        `json:"like_count"`
	IsLiked      bool       `json:"is_liked"`
	IsMine       bool       `json:"is_mine"`
	Distance     *float64   `json:"distance,omitempty"` // computed field
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Clone returns a copy of p that shares no mutable state with it.
func (p Pin) Clone() Pin {
	out := p
	if p.Photos != nil {
		out.Photos = make([]Photo, len(p.Photos))
		copy(out.Photos, p.Photos)
	}
	if p.VisitDate != nil {
		d := *p.VisitDate
		out.VisitDate = &d
	}
	if p.Distance != nil {
		d := *p.Distance
		out.Distance = &d
	}
	return out
}

// Photo represents an image attached to a pin.
type Photo struct {
	ID        string    `json:"id"`
	PinID     string    `json:"pin_id"`
	UserID    string    `json:"user_id"`
	URL       string    `json:"url"`
	Caption   string    `json:"caption,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile represents a user's public profile.
type Profile struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"display_name"`
	PinCount       int       `json:"pin_count"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	IsFollowing    bool      `json:"is_following"`
	IsMe           bool      `json:"is_me"`
	CreatedAt      time.Time `json:"created_at"`
}

// LikeState is the server-side like status of a pin for one viewer.
type LikeState struct {
	PinID     string `json:"pin_id"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"like_count"`
}

// PinFilter narrows a pin listing.
type PinFilter struct {
	AuthorID string
}

// PinInput carries user-editable pin fields. Nil fields are left unchanged
// on update.
type PinInput struct {
	Location     *GeoPoint
	LocationName *string
	VisitDate    *time.Time
	ClearVisit   bool
	Notes        *string
	PhotoURLs    []string
}

// PinEvent is published whenever pins or their social state change.
type PinEvent struct {
	Type      string    `json:"type"`
	PinID     string    `json:"pin_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	LikeCount *int      `json:"like_count,omitempty"`
	PhotoURLs []string  `json:"photo_urls,omitempty"`
	At        time.Time `json:"at"`
}

// Pin event types.
const (
	EventPinCreated    = "pin.created"
	EventPinUpdated    = "pin.updated"
	EventPinDeleted    = "pin.deleted"
	EventPinLiked      = "pin.liked"
	EventPinUnliked    = "pin.unliked"
	EventPhotosPurged  = "photos.purged"
	EventPhotoAttached = "photo.attached"
	EventPhotoRemoved  = "photo.removed"
)
