package model

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/deppfellow/readlog/internal/validation"
)

const (
	KindBooks = "books"
	KindManga = "manga"

	mangaBookType = "Manga"
	topAuthors    = 10
)

// StatsPayload is the query of GET /stats.
//
// Years limits the reads to those finished in one of the given years; an
// empty list means every year. Kind narrows to manga or to everything else.
type StatsPayload struct {
	Years []int  `query:"year" validate:"dive,gte=1900,lte=9999"`
	Kind  string `query:"kind" validate:"omitempty,oneof=books manga"`
}

func (p *StatsPayload) Validate() error {
	return validation.Struct(p)
}

// Includes reports whether r passes the year and kind filters.
func (p *StatsPayload) Includes(r Read) bool {
	if len(p.Years) > 0 {
		found := false
		for _, y := range p.Years {
			if r.FinishDate.Year() == y {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	isManga := strings.EqualFold(strings.TrimSpace(r.BookType), mangaBookType)
	switch p.Kind {
	case KindManga:
		return isManga
	case KindBooks:
		return !isManga
	}
	return true
}

type CategoryCount struct {
	Name       string `json:"name"`
	TotalReads int    `json:"total_reads"`
}

type RatingCount struct {
	Rating     float64 `json:"rating"`
	TotalReads int     `json:"total_reads"`
}

type MonthCount struct {
	Month      string `json:"month"`
	TotalReads int    `json:"total_reads"`
	TotalPages int    `json:"total_pages"`
}

// ReadingStats summarizes a set of reads.
type ReadingStats struct {
	TotalReads      int             `json:"total_reads"`
	FirstReads      int             `json:"first_reads"`
	Rereads         int             `json:"rereads"`
	TotalPages      int             `json:"total_pages"`
	MinPages        int             `json:"min_pages"`
	MaxPages        int             `json:"max_pages"`
	AveragePages    float64         `json:"average_pages"`
	AverageDays     float64         `json:"average_days"`
	ByDemographic   []CategoryCount `json:"by_demographic"`
	ByBookType      []CategoryCount `json:"by_book_type"`
	Fiction         int             `json:"fiction"`
	NonFiction      int             `json:"non_fiction"`
	ByRating        []RatingCount   `json:"by_rating"`
	TopAuthors      []CategoryCount `json:"top_authors"`
	ByFinishedMonth []MonthCount    `json:"by_finished_month"`
}

// Summarize computes ReadingStats for the reads that pass filter.
func Summarize(reads []Read, filter StatsPayload) ReadingStats {
	stats := ReadingStats{
		ByDemographic:   []CategoryCount{},
		ByBookType:      []CategoryCount{},
		ByRating:        []RatingCount{},
		TopAuthors:      []CategoryCount{},
		ByFinishedMonth: make([]MonthCount, 12),
	}
	for i := range stats.ByFinishedMonth {
		stats.ByFinishedMonth[i].Month = time.Month(i + 1).String()[:3]
	}

	demographics := map[string]int{}
	bookTypes := map[string]int{}
	ratings := map[float64]int{}
	authors := map[string]int{}
	totalDays := 0

	for _, r := range reads {
		if !filter.Includes(r) {
			continue
		}

		stats.TotalReads++
		if r.Reread != nil {
			if *r.Reread {
				stats.Rereads++
			} else {
				stats.FirstReads++
			}
		}

		stats.TotalPages += r.PageCount
		if stats.TotalReads == 1 || r.PageCount < stats.MinPages {
			stats.MinPages = r.PageCount
		}
		if r.PageCount > stats.MaxPages {
			stats.MaxPages = r.PageCount
		}
		totalDays += r.StartDate.DaysUntil(r.FinishDate)

		demographics[r.Demographic]++
		bookTypes[r.BookType]++
		authors[r.Author]++
		if r.Fiction {
			stats.Fiction++
		} else {
			stats.NonFiction++
		}
		if r.Rating != nil {
			ratings[*r.Rating]++
		}

		month := r.FinishDate.Month() - 1
		stats.ByFinishedMonth[month].TotalReads++
		stats.ByFinishedMonth[month].TotalPages += r.PageCount
	}

	if stats.TotalReads > 0 {
		stats.AveragePages = round(float64(stats.TotalPages)/float64(stats.TotalReads), 2)
		stats.AverageDays = round(float64(totalDays)/float64(stats.TotalReads), 3)
	}

	stats.ByDemographic = sortedCounts(demographics)
	stats.ByBookType = sortedCounts(bookTypes)

	for rating, n := range ratings {
		stats.ByRating = append(stats.ByRating, RatingCount{Rating: rating, TotalReads: n})
	}
	sort.Slice(stats.ByRating, func(i, j int) bool {
		return stats.ByRating[i].Rating < stats.ByRating[j].Rating
	})

	byCount := sortedCounts(authors)
	sort.SliceStable(byCount, func(i, j int) bool {
		return byCount[i].TotalReads > byCount[j].TotalReads
	})
	if len(byCount) > topAuthors {
		byCount = byCount[:topAuthors]
	}
	stats.TopAuthors = byCount

	return stats
}

// sortedCounts flattens counts ordered by name.
func sortedCounts(counts map[string]int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CategoryCount{Name: name, TotalReads: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

