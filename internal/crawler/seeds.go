package crawler

import "strings"

// SelectSeeds picks the pages whose links a deep crawl verifies: the first
// sitemap URL (the home page) followed by URLs containing pattern, in
// sitemap order, with duplicates removed and at most budget entries in total.
// An empty pattern matches every URL.
func SelectSeeds(urls []string, budget int, pattern string) []string {
	seeds := make([]string, 0, min(budget, len(urls)))
	if budget <= 0 || len(urls) == 0 {
		return seeds
	}

	seen := make(map[string]struct{}, budget)
	seeds = append(seeds, urls[0])
	seen[urls[0]] = struct{}{}

	for _, u := range urls[1:] {
		if len(seeds) >= budget {
			break
		}
		if !strings.Contains(u, pattern) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		seeds = append(seeds, u)
	}
	return seeds
}
