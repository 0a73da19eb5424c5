package entity

import "time"

// StoredObject описание объекта в хранилище артефактов.
type StoredObject struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}
