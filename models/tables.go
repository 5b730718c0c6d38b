package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Username     string `gorm:"uniqueIndex;not null;size:30" json:"username"`
	DisplayName  string `gorm:"not null;size:50" json:"displayName"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"` // json:"-" prevents password from being exposed in API
	Bio          string `gorm:"type:text" json:"bio"`
	AvatarURL    string `json:"avatarUrl"`
	// No gorm default tag on booleans: the tag makes gorm skip a false
	// value on insert and the column default wins. Handlers assign the
	// defaults instead.
	IsPublic     bool `json:"isPublic"`
	ProfileViews int  `gorm:"default:0" json:"profileViews"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Theme      *Theme         `gorm:"constraint:OnDelete:CASCADE" json:"theme,omitempty"`
	Links      []Link         `gorm:"constraint:OnDelete:CASCADE" json:"links,omitempty"`
	Categories []UserCategory `gorm:"constraint:OnDelete:CASCADE" json:"categories,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Theme struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	UserID          string    `gorm:"uniqueIndex;not null;size:36" json:"userId"`
	PrimaryColor    string    `gorm:"default:'#6366f1'" json:"primaryColor"`
	BackgroundColor string    `gorm:"default:'#ffffff'" json:"backgroundColor"`
	ButtonStyle     string    `gorm:"default:'rounded'" json:"buttonStyle"` // rounded, square or pill
	FontFamily      string    `gorm:"default:'system-ui'" json:"fontFamily"`
	ShowAnimations  bool      `json:"showAnimations"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (t *Theme) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

type Link struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	UserID          string    `gorm:"not null;index;size:36" json:"userId"`
	Title           string    `gorm:"not null;size:100" json:"title"`
	URL             string    `gorm:"not null" json:"url"`
	Icon            string    `gorm:"default:'🔗'" json:"icon"`
	Order           int       `gorm:"column:sort_order;default:0" json:"order"` // contiguous 0-based per user
	Clicks          int       `gorm:"default:0" json:"clicks"`
	IsActive        bool      `json:"isActive"`
	BackgroundColor *string   `json:"backgroundColor,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (l *Link) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

type UserCategory struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"not null;index:idx_user_slug,unique;size:36" json:"userId"`
	Name       string    `gorm:"not null" json:"name"`
	Slug       string    `gorm:"not null;index:idx_user_slug,unique" json:"slug"`
	Type       string    `gorm:"default:'interest'" json:"type"` // skill, interest or profession
	IsFeatured bool      `gorm:"default:false" json:"isFeatured"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (c *UserCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
