package nager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/va6996/travelassist/log"
	"github.com/va6996/travelassist/tools"
	"golang.org/x/text/language"
)

// ToolName is the name the model uses to look up holidays.
const ToolName = "get_public_holidays"

const (
	dateLayout = "2006-01-02"
	maxDays    = 366
)

// HolidaysInput is the argument object of get_public_holidays.
type HolidaysInput struct {
	CountryCode string `json:"country_code" description:"2-letter ISO 3166 country code of the destination, e.g. FR"`
	StartDate   string `json:"start_date" description:"First travel day, YYYY-MM-DD"`
	EndDate     string `json:"end_date,omitempty" description:"Last travel day, YYYY-MM-DD. Defaults to start_date"`
}

// HolidaysOutput lists the holidays inside the requested range.
type HolidaysOutput struct {
	CountryCode string    `json:"country_code"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Holidays    []Holiday `json:"holidays"`
	Count       int       `json:"count"`
}

// HolidaysTool exposes HolidaysBetween to the model.
type HolidaysTool struct {
	client *Client
}

// NewHolidaysTool initializes and registers the get_public_holidays tool
func NewHolidaysTool(client *Client, gk *genkit.Genkit, registry *tools.Registry) *HolidaysTool {
	t := &HolidaysTool{client: client}
	if gk == nil || registry == nil {
		return t
	}

	registry.Register(genkit.DefineTool[*HolidaysInput, *HolidaysOutput](
		gk,
		ToolName,
		"Returns the public holidays in a country between two travel dates. Use it to warn about closures or busy days at the destination.",
		func(ctx *ai.ToolContext, input *HolidaysInput) (*HolidaysOutput, error) {
			return t.Execute(ctx, input)
		},
	), func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		b, _ := json.Marshal(args)
		var input HolidaysInput
		if err := json.Unmarshal(b, &input); err != nil {
			return nil, fmt.Errorf("%w: %v", tools.ErrInvalidArguments, err)
		}
		return t.Execute(ctx, &input)
	})
	return t
}

// Execute validates input and returns the holidays in range. Input errors
// and unknown countries wrap tools.ErrInvalidArguments.
func (t *HolidaysTool) Execute(ctx context.Context, input *HolidaysInput) (*HolidaysOutput, error) {
	inputJSON, _ := json.Marshal(input)
	log.Debugf(ctx, "HolidaysTool executing with input: %s", string(inputJSON))

	if t.client == nil {
		return nil, fmt.Errorf("nager client not initialized")
	}
	if input == nil {
		return nil, fmt.Errorf("%w: input required", tools.ErrInvalidArguments)
	}

	cc := strings.ToUpper(strings.TrimSpace(input.CountryCode))
	if _, err := language.ParseRegion(cc); err != nil || len(cc) != 2 {
		return nil, fmt.Errorf("%w: country_code %q must be a 2-letter ISO 3166 code", tools.ErrInvalidArguments, input.CountryCode)
	}
	start, err := time.Parse(dateLayout, strings.TrimSpace(input.StartDate))
	if err != nil {
		return nil, fmt.Errorf("%w: start_date %q is not a valid YYYY-MM-DD date", tools.ErrInvalidArguments, input.StartDate)
	}
	end := start
	if s := strings.TrimSpace(input.EndDate); s != "" {
		if end, err = time.Parse(dateLayout, s); err != nil {
			return nil, fmt.Errorf("%w: end_date %q is not a valid YYYY-MM-DD date", tools.ErrInvalidArguments, input.EndDate)
		}
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date must not be before start_date", tools.ErrInvalidArguments)
	}
	if end.Sub(start) > maxDays*24*time.Hour {
		return nil, fmt.Errorf("%w: date range must not exceed %d days", tools.ErrInvalidArguments, maxDays)
	}

	holidays, err := t.client.HolidaysBetween(ctx, cc, start, end)
	if err != nil {
		var serr *StatusError
		if errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: no holiday data for country %s", tools.ErrInvalidArguments, cc)
		}
		log.Errorf(ctx, "HolidaysTool failed: %v", err)
		return nil, err
	}
	if holidays == nil {
		holidays = []Holiday{}
	}

	log.Debugf(ctx, "HolidaysTool completed successfully. Found %d holidays.", len(holidays))
	return &HolidaysOutput{
		CountryCode: cc,
		StartDate:   start.Format(dateLayout),
		EndDate:     end.Format(dateLayout),
		Holidays:    holidays,
		Count:       len(holidays),
	}, nil
}
