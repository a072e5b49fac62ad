package models

import "time"

// PostLabelLength is how many characters of the text a post's label shows.
const PostLabelLength = 15

// PostImageDir is the storage directory for post images.
const PostImageDir = "posts/"

// Post is authored text with an optional group and image.
// Deleting the author removes the post; deleting the group only clears GroupID.
type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"autoCreateTime;index" json:"pub_date"`
	AuthorID uint      `gorm:"not null;index" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID  *uint     `gorm:"index" json:"group_id,omitempty"`
	Group    *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	Image    string    `gorm:"size:255" json:"image,omitempty"`
}

// String returns the first characters of the text, counted in runes.
func (p Post) String() string {
	runes := []rune(p.Text)
	if len(runes) > PostLabelLength {
		return string(runes[:PostLabelLength])
	}
	return p.Text
}

// HasImage reports whether an image is attached.
func (p Post) HasImage() bool {
	return p.Image != ""
}
