package anthropic

// BuildCachedSystemBlocks constructs a single system block with a cache
// breakpoint. The advisor's system instruction is identical for every call,
// so repeated requests within the TTL read it from the prompt cache.
func BuildCachedSystemBlocks(text, ttl string) []SystemBlock {
	if text == "" {
		return nil
	}
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: ttl,
			},
		},
	}
}
