package models

import "time"

// ServiceRecord is one delivery job performed for a client. The financial
// fields are currency values stored as float64. Imported rows sometimes
// carry string encodings ("$50.00", "1.234,50"); the remote layer
// normalizes those while decoding, so these fields are always clean.
type ServiceRecord struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	ClientID    string     `json:"client_id"`
	Date        time.Time  `json:"date"`
	Pickup      string     `json:"pickup,omitempty"`
	Dropoff     string     `json:"dropoff,omitempty"`
	Description string     `json:"description,omitempty"`
	Cost        float64    `json:"cost"`
	DriverFee   float64    `json:"driver_fee"`
	WaitingTime float64    `json:"waiting_time"`
	ExtraFee    float64    `json:"extra_fee"`
	Status      string     `json:"status,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateServiceRequest represents the request body for creating a service record
type CreateServiceRequest struct {
	ID          string  `json:"id"`
	ClientID    string  `json:"client_id"`
	Date        string  `json:"date"`
	Pickup      string  `json:"pickup"`
	Dropoff     string  `json:"dropoff"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	DriverFee   float64 `json:"driver_fee"`
	WaitingTime float64 `json:"waiting_time"`
	ExtraFee    float64 `json:"extra_fee"`
	Status      string  `json:"status"`
}

// UpdateServiceRequest represents the request body for updating a service record
type UpdateServiceRequest struct {
	ClientID    string  `json:"client_id"`
	Date        string  `json:"date"`
	Pickup      string  `json:"pickup"`
	Dropoff     string  `json:"dropoff"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	DriverFee   float64 `json:"driver_fee"`
	WaitingTime float64 `json:"waiting_time"`
	ExtraFee    float64 `json:"extra_fee"`
	Status      string  `json:"status"`
}
