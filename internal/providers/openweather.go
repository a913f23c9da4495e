package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	openWeatherBaseURL = "https://api.openweathermap.org/data/2.5"
	openWeatherSource  = "openweather"
)

// Weather is the current conditions at a course.
type Weather struct {
	Location    string  `json:"location"`
	TempF       float64 `json:"temp_f"`
	Humidity    int     `json:"humidity"`
	WindMPH     float64 `json:"wind_mph"`
	WindDeg     int     `json:"wind_deg"`
	Conditions  string  `json:"conditions"`
	Description string  `json:"description"`
}

type OpenWeatherClient struct {
	http    *httpClient
	apiKey  string
	baseURL string
	logger  *logrus.Logger
}

func NewOpenWeatherClient(apiKey string, opts Options, logger *logrus.Logger) *OpenWeatherClient {
	logger = orStandardLogger(logger)
	base := opts.BaseURL
	if base == "" {
		base = openWeatherBaseURL
	}
	return &OpenWeatherClient{
		http:    newHTTPClient(openWeatherSource, opts, logger),
		apiKey:  apiKey,
		baseURL: strings.TrimRight(base, "/"),
		logger:  logger,
	}
}

type openWeatherResponse struct {
	Main *struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Name string `json:"name"`
}

// Current returns conditions at the given coordinates in imperial units.
func (c *OpenWeatherClient) Current(ctx context.Context, lat, lon float64) (*Weather, error) {
	if c.apiKey == "" {
		return nil, &Failure{Source: openWeatherSource, Kind: FailureHTTP, Err: ErrNotConfigured}
	}

	params := url.Values{}
	params.Add("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Add("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	params.Add("appid", c.apiKey)
	params.Add("units", "imperial")

	var resp openWeatherResponse
	if err := c.http.getJSON(ctx, fmt.Sprintf("%s/weather?%s", c.baseURL, params.Encode()), &resp); err != nil {
		return nil, err
	}
	if resp.Main == nil {
		return nil, &Failure{Source: openWeatherSource, Kind: FailureMalformed, Err: fmt.Errorf("response has no main block")}
	}

	w := &Weather{
		Location: resp.Name,
		TempF:    resp.Main.Temp,
		Humidity: resp.Main.Humidity,
		WindMPH:  resp.Wind.Speed,
		WindDeg:  resp.Wind.Deg,
	}
	if len(resp.Weather) > 0 {
		w.Conditions = resp.Weather[0].Main
		w.Description = resp.Weather[0].Description
	}
	return w, nil
}
