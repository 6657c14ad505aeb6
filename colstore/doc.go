// Package colstore persists mixed-type tables, arbitrary objects and mass-spectrometry
// peak maps into a single random-access container file.
//
// Quick start:
//
//	c, err := colstore.Create("run.pkst", colstore.DefaultConfig())
//	id, err := c.Store("hello")        // strings, peak maps, anything gob can encode
//	err = colstore.NewTableWriter(c).Write(table)
//
//	r, err := colstore.Open("run.pkst", nil)
//	v, err := r.Fetch(id)
//	t, err := r.OpenTable()
//
// Values reach their store through a TypeRegistry and are addressed by a GlobalID
// whose low 3 bits name the store. Strings and objects are deduplicated through a
// bounded write cache; peak maps by content hash.
package colstore
