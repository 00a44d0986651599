package model

// User holds the reverse indexes maintained by the event lifecycle.
type User struct {
	ID         string   `json:"id" bson:"_id"`
	Name       string   `json:"name" bson:"name"`
	MyEventIDs []string `json:"my_event_ids" bson:"my_event_ids"`
	MyPasses   []string `json:"my_passes" bson:"my_passes"`
}
