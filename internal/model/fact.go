package model

// Fact is one entry of the built-in facts catalogue served by GET
// /api/facts/.  Facts are defined at compile time and never persisted.
//
// Fields:
//  ID       – position in the catalogue, 1-based and unique.
//  Fact     – the fact text.
//  Category – free-form label such as "Programming" or "Internet".
type Fact struct {
    ID       uint   `json:"id"`
    Fact     string `json:"fact"`
    Category string `json:"category"`
}
