package address

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// MinQueryLength is the shortest query sent to the geocoder, in runes.
const MinQueryLength = 3

// CacheTTL is how long suggestions for a query are reused.
const CacheTTL = 10 * time.Minute

const maxSuggestions = 5

// ErrProvider is returned when the geocoder cannot be reached or answers badly.
var ErrProvider = errors.New("address provider unavailable")

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// Suggester answers address-picker queries, caching results in Redis.
type Suggester struct {
	baseURL    string
	httpClient *http.Client
	rdb        redis.Cmdable
	log        zerolog.Logger
}

func NewSuggester(baseURL string, httpClient *http.Client, rdb redis.Cmdable, log zerolog.Logger) *Suggester {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Suggester{
		baseURL:    baseURL,
		httpClient: httpClient,
		rdb:        rdb,
		log:        log.With().Str("component", "address").Logger(),
	}
}

// Suggest returns candidates for query. Queries shorter than MinQueryLength
// return an empty list without calling the provider.
func (s *Suggester) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	q := normalize(query)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return []Suggestion{}, nil
	}

	key := cacheKey(q)
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var out []Suggestion
			if jerr := json.Unmarshal(cached, &out); jerr == nil {
				return out, nil
			}
		case !errors.Is(err, redis.Nil):
			s.log.Warn().Err(err).Msg("read address cache")
		}
	}

	out, err := s.fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if b, err := json.Marshal(out); err == nil {
			if err := s.rdb.Set(ctx, key, b, CacheTTL).Err(); err != nil {
				s.log.Warn().Err(err).Msg("write address cache")
			}
		}
	}
	return out, nil
}

// providerPlace is the geocoder's result shape (Nominatim style).
type providerPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func (s *Suggester) fetch(ctx context.Context, q string) ([]Suggestion, error) {
	v := url.Values{
		"q":            {q},
		"format":       {"json"},
		"limit":        {strconv.Itoa(maxSuggestions)},
		"countrycodes": {"vn"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "vi")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}

	var places []providerPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	out := make([]Suggestion, 0, len(places))
	for _, p := range places {
		lat, err1 := strconv.ParseFloat(p.Lat, 64)
		lng, err2 := strconv.ParseFloat(p.Lon, 64)
		if err1 != nil || err2 != nil || strings.TrimSpace(p.DisplayName) == "" {
			continue
		}
		out = append(out, Suggestion{Label: p.DisplayName, Lat: lat, Lng: lng})
		if len(out) == maxSuggestions {
			break
		}
	}
	return out, nil
}

// normalize collapses whitespace and lower-cases the query.
func normalize(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

func cacheKey(q string) string {
	sum := sha1.Sum([]byte(q))
	return "addr:suggest:" + hex.EncodeToString(sum[:])
}
