// Package catalog loads the avatar emoji catalog embedded in the binary.
// The catalog is read once at startup and shared read-only by every room:
// it is both the avatar pool rooms draw from and the payload of
// GET /entries.
package catalog

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"k8s.io/utils/set"

	"theatre/internal/v1/types"
)

//go:embed entries.txt
var rawEntries []byte

// Catalog is the immutable set of avatar emoji ids available to rooms.
type Catalog struct {
	entries []types.Emoji
	ids     set.Set[string]
}

// EntriesResponse is the GET /entries body.
type EntriesResponse struct {
	Available []types.Emoji `json:"available"`
}

// Load parses the embedded entries file: one hex emoji id per line.
// Blank lines are rejected so a malformed resource fails startup instead
// of minting invisible avatars.
func Load() (*Catalog, error) {
	return parse(rawEntries)
}

func parse(data []byte) (*Catalog, error) {
	c := &Catalog{ids: set.New[string]()}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			return nil, fmt.Errorf("entries resource: blank line at line %d", line)
		}
		c.entries = append(c.entries, types.Emoji{ID: id})
		c.ids.Insert(id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading entries resource: %w", err)
	}
	if len(c.entries) == 0 {
		return nil, fmt.Errorf("entries resource: no entries")
	}
	return c, nil
}

// Entries returns the catalog in file order, as served by GET /entries.
// Callers must not mutate the returned slice.
func (c *Catalog) Entries() []types.Emoji {
	return c.entries
}

// IDSet returns the avatar pool rooms pick from. The set is shared and
// read-only; rooms take differences against it rather than mutating it.
func (c *Catalog) IDSet() set.Set[string] {
	return c.ids
}

// Len reports the number of distinct avatar ids.
func (c *Catalog) Len() int {
	return c.ids.Len()
}

// Handler serves GET /entries.
func (c *Catalog) Handler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, EntriesResponse{Available: c.Entries()})
}
