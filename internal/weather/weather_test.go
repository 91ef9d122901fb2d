package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CurrentWeather(ctx context.Context, lat, lng float64) (Reading, error) {
	args := m.Called(ctx, lat, lng)
	return args.Get(0).(Reading), args.Error(1)
}

func TestIsSafe(t *testing.T) {
	tests := []struct {
		name    string
		reading Reading
		safe    bool
	}{
		{"strong wind", Reading{WindKph: 40, Condition: "Clear"}, false},
		{"rain", Reading{WindKph: 10, Condition: "Rain"}, false},
		{"clouds", Reading{WindKph: 10, Condition: "Clouds"}, true},
		{"wind at limit", Reading{WindKph: 35, Condition: "Clear"}, true},
		{"case insensitive", Reading{WindKph: 1, Condition: "THUNDERSTORM"}, false},
		{"drizzle", Reading{WindKph: 1, Condition: "drizzle"}, false},
		{"snow", Reading{WindKph: 1, Condition: "Snow"}, false},
		{"no partial match", Reading{WindKph: 1, Condition: "Rainbow"}, true},
		{"neutral", Neutral(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.safe, IsSafe(tt.reading))
		})
	}
}

func TestGate_PassesProviderReading(t *testing.T) {
	p := new(mockProvider)
	p.On("CurrentWeather", mock.Anything, 44.4, 26.1).Return(Reading{TemperatureC: 3, WindKph: 12, Condition: "Snow"}, nil).Once()

	rep := NewGate(p, time.Second, nil).Check(context.Background(), 44.4, 26.1)

	assert.False(t, rep.Fallback)
	assert.False(t, rep.Safe)
	assert.Equal(t, "Snow", rep.Reading.Condition)
	p.AssertExpectations(t)
}

func TestGate_FallsBackOnError(t *testing.T) {
	p := new(mockProvider)
	p.On("CurrentWeather", mock.Anything, 1.0, 2.0).Return(Reading{}, errors.New("connection refused")).Once()

	rep := NewGate(p, time.Second, nil).Check(context.Background(), 1, 2)

	assert.True(t, rep.Fallback)
	assert.True(t, rep.Safe)
	assert.Equal(t, Neutral(), rep.Reading)
	p.AssertExpectations(t)
}

func TestGate_FallsBackOnTimeout(t *testing.T) {
	slow := ProviderFunc(func(ctx context.Context, lat, lng float64) (Reading, error) {
		<-ctx.Done()
		return Reading{}, ctx.Err()
	})
	start := time.Now()
	rep := NewGate(slow, 20*time.Millisecond, nil).Check(context.Background(), 1, 2)

	assert.True(t, rep.Fallback)
	assert.Equal(t, Neutral(), rep.Reading)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGate_NilProviderIsNeutral(t *testing.T) {
	rep := NewGate(nil, 0, nil).Check(context.Background(), 0, 0)
	assert.True(t, rep.Fallback)
	assert.True(t, rep.Safe)
}

func TestOpenWeatherClient_ParsesMetricResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "44.43", r.URL.Query().Get("lat"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"main":{"temp":17.2},"wind":{"speed":5.55},"weather":[{"main":"Clouds"}]}`))
	}))
	defer srv.Close()

	c := &OpenWeatherClient{BaseURL: srv.URL, APIKey: "k", HTTP: srv.Client()}
	r, err := c.CurrentWeather(context.Background(), 44.43, 26.1)
	require.NoError(t, err)
	assert.Equal(t, 17.2, r.TemperatureC)
	assert.Equal(t, 20.0, r.WindKph)
	assert.Equal(t, "Clouds", r.Condition)
}

func TestOpenWeatherClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := &OpenWeatherClient{BaseURL: srv.URL, APIKey: "k", HTTP: srv.Client()}
	_, err := c.CurrentWeather(context.Background(), 1, 2)
	assert.Error(t, err)

	_, err = NewOpenWeatherClient("").CurrentWeather(context.Background(), 1, 2)
	assert.Error(t, err)
}
