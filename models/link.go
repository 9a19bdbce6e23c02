package models

// Link is one record of a link database, keyed by its URI.
type Link struct {
	ID          string   `json:"id" dynamodbav:"id"`
	Description string   `json:"description" dynamodbav:"description"`
	ShortURL    string   `json:"short_url" dynamodbav:"short_url"`
	Keywords    []string `json:"keywords" dynamodbav:"keywords"`
}

// Clone returns a deep copy of the Link.
func (l *Link) Clone() *Link {
	if l == nil {
		return nil
	}
	clone := *l
	clone.Keywords = make([]string, len(l.Keywords))
	copy(clone.Keywords, l.Keywords)
	return &clone
}

// Database maps URIs to Links.
type Database map[string]*Link

// HasURI reports whether a Link is stored under uri.
func (db Database) HasURI(uri string) bool {
	_, found := db[uri]
	return found
}

// FindByID returns the URI and Link with the given id, or "" and nil if there
// is none.
func (db Database) FindByID(id string) (string, *Link) {
	for uri, link := range db {
		if link != nil && link.ID == id {
			return uri, link
		}
	}
	return "", nil
}

// HasShortURL reports whether any Link uses shortURL.
func (db Database) HasShortURL(shortURL string) bool {
	if shortURL == "" {
		return false
	}
	for _, link := range db {
		if link != nil && link.ShortURL == shortURL {
			return true
		}
	}
	return false
}

// Normalize replaces nil keywords with empty slices so that records always
// serialise keywords as a list.
func (db Database) Normalize() {
	for _, link := range db {
		if link != nil && link.Keywords == nil {
			link.Keywords = []string{}
		}
	}
}

// Clone returns a deep copy of the Database.
func (db Database) Clone() Database {
	if db == nil {
		return nil
	}
	clone := make(Database, len(db))
	for uri, link := range db {
		clone[uri] = link.Clone()
	}
	return clone
}
