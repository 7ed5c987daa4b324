package model

type WorkSessionStatus string

const (
	WorkSessionStatusOpen   WorkSessionStatus = "open"
	WorkSessionStatusClosed WorkSessionStatus = "closed"
)
