package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Customer struct {
	bun.BaseModel `bun:"table:customers"`

	ID        string    `bun:"id,pk" json:"id"`
	FirstName string    `bun:"first_name,notnull" json:"firstName"`
	LastName  string    `bun:"last_name,notnull" json:"lastName"`
	Email     string    `bun:"email,unique,notnull" json:"email"`
	Created   time.Time `bun:"created,notnull,default:current_timestamp" json:"created"`
	Updated   time.Time `bun:"updated,notnull,default:current_timestamp" json:"updated"`
}
