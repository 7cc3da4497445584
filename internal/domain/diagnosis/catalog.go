package diagnosis

// DefaultCatalog returns the catalog of every built-in disease module, in
// menu order.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(Diabetes, Heart, Parkinsons, LungCancer, Thyroid, Covid19)
	if err != nil {
		panic(err)
	}
	return c
}
