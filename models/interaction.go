package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Interaction is one persisted user turn: question, classification signals
// and the generated content, kept for progress tracking and analytics.
type Interaction struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InteractionID   string             `bson:"interaction_id" json:"interaction_id"`
	UserID          string             `bson:"user_id" json:"user_id"`
	Question        string             `bson:"question" json:"question"`
	Maturity        MaturityLevel      `bson:"maturity" json:"maturity"`
	PreferredFormat MediaFormat        `bson:"preferred_format" json:"preferred_format"`
	InScope         bool               `bson:"in_scope" json:"in_scope"`
	ContentText     string             `bson:"content_text" json:"content_text"`
	Timestamp       time.Time          `bson:"timestamp" json:"timestamp"`
}

// InteractionStats is aggregate usage data over the interactions store.
type InteractionStats struct {
	TotalInteractions int64  `json:"total_interactions"`
	UniqueUsers       int64  `json:"unique_users"`
	MostCommonFormat  string `json:"most_common_format"`
}
