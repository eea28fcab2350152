package chunker

type ChunkOptions struct {
	MaxChars int
	MinChars int
}

func (o ChunkOptions) withDefaults() ChunkOptions {
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}

	if o.MinChars < 0 {
		o.MinChars = 0
	}

	return o
}

type Chunk struct {
	Index   int
	Content string
	Length  int
}
