package scene

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectBucket(t *testing.T) {
	tests := []struct {
		name    string
		weather string
		hour    int
		want    Bucket
	}{
		{"rain at 7", "Light Rain", 7, RainShelter},
		{"rain at 18", "Chance Showers And Thunderstorms", 18, RainShelter},
		{"rain at 19 is evening", "Rain", 19, Evening},
		{"rain at 6 is night", "Rain", 6, Night},
		{"early morning start", "Sunny", 7, EarlyMorning},
		{"early morning end", "Sunny", 9, EarlyMorning},
		{"morning rush start", "Sunny", 10, MorningRush},
		{"boundary hour 13 stays morning rush", "Sunny", 13, MorningRush},
		{"midday start", "Sunny", 14, Midday},
		{"boundary hour 17 stays midday", "Sunny", 17, Midday},
		{"evening start", "Clear", 18, Evening},
		{"evening end", "Clear", 21, Evening},
		{"late night", "Clear", 22, Night},
		{"midnight", "Clear", 0, Night},
		{"before dawn", "Clear", 6, Night},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SelectBucket(tt.weather, tt.hour))
		})
	}
}

func TestSelectBucketIsStableForDryWeather(t *testing.T) {
	for h := 0; h < 24; h++ {
		first := SelectBucket("Sunny", h)
		for i := 0; i < 3; i++ {
			require.Equal(t, first, SelectBucket("Mostly Clear", h), "hour %d", h)
		}
	}
}

func TestRainTakesPrecedence(t *testing.T) {
	for _, w := range []string{"rain", "RAIN", "Showers Likely", "Thunderstorms", "Severe STORM"} {
		for h := 7; h < 19; h++ {
			require.Equal(t, RainShelter, SelectBucket(w, h), "%q at %d", w, h)
		}
	}
}

func TestComposeRainScenario(t *testing.T) {
	s := Compose(Context{
		Location:           "New York City, NY",
		WeatherDescription: "Rain showers likely",
		FlowerName:         "Rose",
		BeeName:            "Bumble Bumbleton",
		Hour:               14,
	})
	require.Equal(t, RainShelter, s.Bucket)
	msg := strings.ToLower(s.Message)
	require.True(t, strings.Contains(msg, "wet") || strings.Contains(msg, "rain"))
	require.Contains(t, msg, "petal")
	require.Contains(t, s.Message, "New York City, NY")
}

func TestComposeEarlyMorningScenario(t *testing.T) {
	s := Compose(Context{
		Location:           "Austin, TX",
		WeatherDescription: "Sunny",
		FlowerName:         "Bluebonnet",
		BeeName:            "Honey Bunny",
		Hour:               8,
	})
	require.Equal(t, EarlyMorning, s.Bucket)
	require.Contains(t, s.Prompt, "early morning")
	require.Contains(t, s.Prompt, "early morning sun")
	require.Contains(t, s.Message, "dew")
}

func TestComposeCloudAdjectives(t *testing.T) {
	tests := []struct {
		hour  int
		sunny string
		cloud string
	}{
		{8, "under the early morning sun", "under the softly lit"},
		{11, "a bright and sunny sky", "an overcast but bright sky"},
		{15, "The sun is a high and bright.", "The sun is a hazy."},
	}
	for _, tt := range tests {
		c := Context{Location: "Boise, ID", FlowerName: "Camas", BeeName: "Sleepy Sue", Hour: tt.hour}
		c.WeatherDescription = "Sunny"
		require.Contains(t, ComposePrompt(c), tt.sunny)
		c.WeatherDescription = "Mostly Cloudy"
		require.Contains(t, ComposePrompt(c), tt.cloud)
	}
}

func TestComposePromptLayout(t *testing.T) {
	c := Context{Location: "Denver, CO", WeatherDescription: "Clear", FlowerName: "Blanket Flower", BeeName: "Dizzy Dancer", Hour: 23}
	p := ComposePrompt(c)

	research, scene, ok := strings.Cut(p, "\n\nAn ultra-realistic")
	require.True(t, ok)
	require.True(t, strings.HasPrefix(research, "Task: Create an image of a bee on a specific flower"))
	require.True(t, strings.HasSuffix(research, "generate the following scene:"))
	require.Contains(t, research, `"Blanket Flower"`)
	require.Contains(t, scene, "It is dark in Denver, CO.")
	require.True(t, strings.HasSuffix(p, styleSentence))
	require.Equal(t, ComposeMessage(c), Compose(c).Message)
}

func TestPromptRoundTrip(t *testing.T) {
	flowers := []string{"Joe Pye Weed", "Pink and White Lady's Slipper", `The "Quoted" Bloom`}
	for _, flower := range flowers {
		for _, bee := range BeeCharacters {
			p := ComposePrompt(Context{Location: "Salem, OR", WeatherDescription: "Sunny", FlowerName: flower, BeeName: bee.Name, Hour: 12})

			gotFlower, ok := ParseFlower(p)
			require.True(t, ok)
			require.Equal(t, flower, gotFlower)

			gotBee, ok := ParseBeeName(p)
			require.True(t, ok)
			require.Equal(t, bee.Name, gotBee)
			require.Contains(t, p, bee.Name)
		}
	}
}

func TestParseRejectsForeignText(t *testing.T) {
	_, ok := ParseFlower("a photo of a bee")
	require.False(t, ok)
	_, ok = ParseBeeName("inspired by the personality of nobody")
	require.False(t, ok)
}
