// Package repository contains data access logic separated from HTTP handlers.
// This file defines the facts catalogue.  Facts live in memory for the whole
// life of the process; there is no table behind them.
package repository

import "github.com/iliyamo/facts-api/internal/model"

// catalogue is kept in ascending ID order.  It is an array, not a slice, so
// handing out copies never shares backing storage with it.
var catalogue = [...]model.Fact{
	{ID: 1, Fact: "Python was named after the comedy series 'Monty Python's Flying Circus', not the snake!", Category: "Programming"},
	{ID: 2, Fact: "The first computer bug was an actual bug - a moth found in a Harvard computer in 1947.", Category: "Technology"},
	{ID: 3, Fact: "Django framework was named after jazz guitarist Django Reinhardt.", Category: "Programming"},
	{ID: 4, Fact: "The '@' symbol in email addresses was chosen in 1971 and is called 'at sign'.", Category: "Technology"},
	{ID: 5, Fact: "React was created by Facebook and released as open source in 2013.", Category: "Programming"},
	{ID: 6, Fact: "The first website ever created is still online at info.cern.ch.", Category: "Internet"},
	{ID: 7, Fact: "GitHub was launched in 2008 and now hosts over 200 million repositories.", Category: "Development"},
	{ID: 8, Fact: "The term 'debugging' was popularized by Grace Hopper, a computer science pioneer.", Category: "Technology"},
	{ID: 9, Fact: "JavaScript was created in just 10 days by Brendan Eich in 1995.", Category: "Programming"},
	{ID: 10, Fact: "The first domain name ever registered was Symbolics.com on March 15, 1985.", Category: "Internet"},
}

// FactRepo serves the static facts catalogue.  The zero value is ready to
// use and safe for concurrent callers since nothing is ever written.
type FactRepo struct{}

// NewFactRepo constructs a FactRepo.  It exists to mirror the other
// repository constructors used at startup.
func NewFactRepo() *FactRepo {
	return &FactRepo{}
}

// List returns every fact in ascending ID order.  The slice is a fresh copy
// on each call; callers may modify it freely.
func (r *FactRepo) List() []model.Fact {
	out := make([]model.Fact, len(catalogue))
	copy(out, catalogue[:])
	return out
}
