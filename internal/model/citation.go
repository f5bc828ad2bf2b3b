package model

// Citation is a search result offered as corroborating or refuting context
type Citation struct {
	Title   string `json:"title" bson:"title"`
	Link    string `json:"link" bson:"link"`
	Snippet string `json:"snippet" bson:"snippet"`
	Source  string `json:"source" bson:"source"` // Displayed host
}
