package ids

// Generator generates the codes used for short URLs.
type Generator interface {
	GenerateID() (string, error)
}
