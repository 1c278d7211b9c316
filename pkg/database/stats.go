package database

import "sort"

// Stats summarizes generation history for the admin CLI.
type Stats struct {
	Total     int
	WithImage int
	WithVideo int
	ByBucket  map[string]int
	ByState   map[string]int
	TopBees   []Count
}

type Count struct {
	Name  string
	Count int
}

// Summarize aggregates records. TopBees is sorted by count, then name.
func Summarize(records []GenerationRecord) Stats {
	s := Stats{
		Total:    len(records),
		ByBucket: map[string]int{},
		ByState:  map[string]int{},
	}
	bees := map[string]int{}
	for _, r := range records {
		if r.ImageURL != "" {
			s.WithImage++
		}
		if r.VideoURL != "" {
			s.WithVideo++
		}
		if r.Bucket != "" {
			s.ByBucket[r.Bucket]++
		}
		if r.State != "" {
			s.ByState[r.State]++
		}
		if r.BeeName != "" {
			bees[r.BeeName]++
		}
	}
	for name, n := range bees {
		s.TopBees = append(s.TopBees, Count{Name: name, Count: n})
	}
	sort.Slice(s.TopBees, func(i, j int) bool {
		if s.TopBees[i].Count != s.TopBees[j].Count {
			return s.TopBees[i].Count > s.TopBees[j].Count
		}
		return s.TopBees[i].Name < s.TopBees[j].Name
	})
	return s
}
