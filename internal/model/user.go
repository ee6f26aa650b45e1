package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a user document in MongoDB. The realtime service never
// creates users; identity is owned by the main application, this is a
// read-only projection used for the roster.
type User struct {
	ID        primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	UserID    string             `json:"id" bson:"user_id"`
	Name      string             `json:"name" bson:"name"`
	Avatar    string             `json:"avatar,omitempty" bson:"avatar"`
	IsActive  bool               `json:"-" bson:"is_active"`
	CreatedAt time.Time          `json:"-" bson:"created_at"`
}

// RosterEntry is a User decorated with live presence for the roster
// snapshot pushed on connect and served over REST.
type RosterEntry struct {
	User
	Online bool `json:"online"`
}
