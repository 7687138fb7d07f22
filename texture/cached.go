package texture

// Cached is a texture written to the disk mirror. Path points at a png file.
type Cached struct {
	Name string
	Path string
	Size Size
}
