package linkdb

const (
	FieldURI         = "uri"
	FieldID          = "id"
	FieldDescription = "description"
)

// CreateOptions describes the link to create.
type CreateOptions struct {
	URI         string   `json:"uri"`
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Database    string   `json:"database,omitempty"` // defaults to the LinkDB's default database
	Keywords    []string `json:"keywords,omitempty"`
	ShortURL    string   `json:"short_url,omitempty"`
}

// Validate checks that the required options are present. It does no I/O.
func (o *CreateOptions) Validate() error {
	if o == nil {
		return &ErrInvalidArgument{msg: "options must not be nil"}
	}

	required := []struct {
		field string
		value string
	}{
		{FieldURI, o.URI},
		{FieldID, o.ID},
		{FieldDescription, o.Description},
	}
	for _, r := range required {
		if r.value == "" {
			return &ErrInvalidArgument{msg: r.field + " must not be empty"}
		}
	}

	return nil
}
