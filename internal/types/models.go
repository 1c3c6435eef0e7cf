package types

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority normalizes case and whitespace; ok is false outside the enum.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, true
	}
	return PriorityMedium, false
}

const (
	Unknown         = "unknown"
	StatusPending   = "Pending"
	CategoryGarbage = "garbage"
)

// Extraction is the structured triple derived from the English description.
type Extraction struct {
	Priority Priority `json:"priority"`
	Area     string   `json:"area"`
	Ward     string   `json:"ward"`
	// Fallback is set when the defaults were substituted.
	Fallback bool `json:"-"`
}

func DefaultExtraction() Extraction {
	return Extraction{Priority: PriorityMedium, Area: Unknown, Ward: Unknown, Fallback: true}
}

// Submission is one citizen voice report as received by the transport.
type Submission struct {
	Audio       []byte
	Filename    string
	ContentType string
	ImageURL    string
	UserID      string
	Latitude    float64
	Longitude   float64
}

type Report struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID             string             `bson:"user_id" json:"user_id"`
	Category           string             `bson:"category" json:"category"`
	Location           string             `bson:"location" json:"location"`
	Latitude           float64            `bson:"latitude" json:"latitude"`
	Longitude          float64            `bson:"longitude" json:"longitude"`
	ImageURL           string             `bson:"image_url" json:"image_url"`
	AudioURL           string             `bson:"audio_url" json:"audio_url"`
	TTSURL             string             `bson:"tts_url" json:"tts_url"`
	Status             string             `bson:"status" json:"status"`
	Notes              string             `bson:"notes" json:"notes"`
	DescriptionTamil   string             `bson:"description_tamil" json:"description_tamil"`
	DescriptionEnglish string             `bson:"description_english" json:"description_english"`
	Priority           Priority           `bson:"priority" json:"priority"`
	Area               string             `bson:"area" json:"area"`
	Ward               string             `bson:"ward" json:"ward"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
}

// Location renders "<area>, <ward>", using city when the area is unknown and
// dropping the ward when it is unknown.
func Location(area, ward, city string) string {
	loc := area
	if loc == "" || loc == Unknown {
		loc = city
	}
	if ward != "" && ward != Unknown {
		loc += ", " + ward
	}
	return loc
}

// Result is the success payload returned for a processed report.
type Result struct {
	Success     bool     `json:"success"`
	ReportID    string   `json:"report_id"`
	TamilText   string   `json:"tamil_text"`
	EnglishText string   `json:"english_text"`
	Priority    Priority `json:"priority"`
	Area        string   `json:"area"`
	Ward        string   `json:"ward"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	ImageURL    string   `json:"image_url"`
	AudioURL    string   `json:"audio_url"`
	TTSURL      string   `json:"tts_url"`
}
