package helpdesk

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/stream"
)

// Extractor pages through a helpdesk collection filtered by creation time.
type Extractor struct {
	Log      logger.Logger
	Client   *Client
	Resource string // collection path, e.g. "tickets" or "chat".
	PageSize int
}

// WindowParams builds the created-at filter and sort parameters for w.
func WindowParams(w Window) url.Values {
	v := url.Values{}
	v.Set("filters[0][property]", "createdAt")
	v.Set("filters[0][operator]", "ge")
	v.Set("filters[0][value]", w.Start.Format(constants.TimeFormatWindow))
	v.Set("filters[1][property]", "createdAt")
	v.Set("filters[1][operator]", "le")
	v.Set("filters[1][value]", w.End.Format(constants.TimeFormatWindow))
	v.Set("sort[property]", "createdAt")
	v.Set("sort[direction]", "asc")
	return v
}

// EqualsParams builds a single exact-match filter on property limited to one result.
func EqualsParams(property string, value string) url.Values {
	v := url.Values{}
	v.Set("filters[0][property]", property)
	v.Set("filters[0][operator]", "eq")
	v.Set("filters[0][value]", value)
	v.Set("limit", "1")
	return v
}

func (e *Extractor) pageSize() int {
	if e.PageSize <= 0 || e.PageSize > constants.PageSizeMax {
		return constants.PageSizeMax
	}
	return e.PageSize
}

// Fetch requests pages 1, 2, ... of the collection for w until one comes back empty and returns the
// concatenation. Any page that still fails after retries aborts the fetch.
func (e *Extractor) Fetch(ctx context.Context, w Window) ([]stream.Record, error) {
	params := WindowParams(w)
	params.Set("limit", strconv.Itoa(e.pageSize()))
	retval := make([]stream.Record, 0)
	for page := 1; ; page++ {
		params.Set("page", strconv.Itoa(page))
		body, err := e.Client.GetWithRetry(ctx, "/"+e.Resource, params)
		if err != nil {
			return nil, errors.Wrapf(err, "error fetching %v page %v for window %v", e.Resource, page, w)
		}
		items := ResultsList(body)
		if len(items) == 0 {
			e.Log.Debug("fetched ", len(retval), " ", e.Resource, " in ", page-1, " pages for window ", w)
			return retval, nil
		}
		for _, item := range items {
			if m, ok := item.(map[string]interface{}); ok {
				retval = append(retval, stream.NewRecordFromMap(m))
			}
		}
	}
}
