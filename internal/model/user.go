package model

import "time"

type User struct {
	TelegramID       int64
	Handle           string
	Username         string
	Coins            int
	XP               int
	IsAdmin          bool
	RegistrationDate time.Time
	AuthDate         time.Time
}
