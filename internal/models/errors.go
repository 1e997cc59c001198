package models

import "errors"

// Storage errors shared by every store implementation.
var (
	ErrNotFound  = errors.New("not found")
	ErrSlotTaken = errors.New("time slot already booked")
)
