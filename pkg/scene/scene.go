package scene

import (
	"fmt"
	"strconv"
	"strings"
)

// Bucket is the time-of-day narrative branch a scene falls into.
type Bucket string

const (
	RainShelter  Bucket = "rain-shelter"
	EarlyMorning Bucket = "early-morning"
	MorningRush  Bucket = "morning-rush"
	Midday       Bucket = "midday"
	Evening      Bucket = "evening"
	Night        Bucket = "night"
)

// Context is everything the composer needs for one run.
type Context struct {
	Location           string
	WeatherDescription string
	FlowerName         string
	BeeName            string
	Hour               int
}

// Scene is the composed output for a Context.
type Scene struct {
	Bucket  Bucket
	Prompt  string
	Message string
}

const (
	researchBlock = "Task: Create an image of a bee on a specific flower, ensuring botanical accuracy.\n\n" +
		"Step 1: Research.\n" +
		"Before generating the image, perform internal research to understand the precise visual characteristics of the flower: %q. " +
		"Analyze its typical colors, petal shape and count, stamen/pistil structure, leaf appearance, and overall blossom arrangement " +
		"(e.g., single flower, clustered inflorescence). For example, your research on 'Joe Pye Weed' should identify it as having " +
		"large clusters of small, fuzzy, mauve-pink flowers.\n\n" +
		"Step 2: Generate Image.\n" +
		"Using your detailed visual understanding from Step 1, generate the following scene:"

	baseSentence  = "An ultra-realistic, stunning, cinematic macro photograph of a native bee, its appearance subtly inspired by the personality of %q."
	styleSentence = "Incredibly detailed, vibrant colors, dramatic lighting, shallow depth of field, capturing the intricate details of the bee and its environment."
)

var rainWords = []string{"rain", "shower", "storm"}

func isRainy(weather string) bool {
	w := strings.ToLower(weather)
	for _, word := range rainWords {
		if strings.Contains(w, word) {
			return true
		}
	}
	return false
}

func isCloudy(weather string) bool {
	return strings.Contains(strings.ToLower(weather), "cloud")
}

// SelectBucket picks the branch for a weather description and local hour. First match wins.
// Hours 13 and 17 sit on inclusive bounds of MorningRush and Midday; anything left over is Night.
func SelectBucket(weather string, hour int) Bucket {
	switch {
	case isRainy(weather) && hour >= 7 && hour < 19:
		return RainShelter
	case hour >= 7 && hour < 10:
		return EarlyMorning
	case hour >= 10 && hour <= 13:
		return MorningRush
	case hour >= 14 && hour <= 17:
		return Midday
	case hour >= 18 && hour <= 21:
		return Evening
	default:
		return Night
	}
}

type branch struct {
	scenario string
	lighting string
	message  string
}

func branchFor(b Bucket, c Context) branch {
	loc, flower := c.Location, c.FlowerName
	cloudy := isCloudy(c.WeatherDescription)

	switch b {
	case RainShelter:
		return branch{
			scenario: fmt.Sprintf("The bee is taking shelter from a gentle rain shower under a vibrant %s petal in %s. Glistening raindrops cling to the flower and the bee's fuzzy body.", flower, loc),
			lighting: "The lighting is soft and diffused due to the overcast, rainy sky.",
			message:  fmt.Sprintf("Phew, it's a bit wet out here in %s! I'm taking a little break from the rain under this big %s petal. I'll be back to work as soon as the sun comes out again!", loc, flower),
		}
	case EarlyMorning:
		adj := "early morning sun"
		if cloudy {
			adj = "softly lit"
		}
		return branch{
			scenario: fmt.Sprintf("It's early morning in %s. The bee is just starting its day, warming its wings on a %s under the %s. Dew drops are still visible on the petals.", loc, flower, adj),
			lighting: "The lighting is gentle and golden, characteristic of sunrise.",
			message:  fmt.Sprintf("Good morning from a dew-covered %s! I'm just warming up my wings on this %s. It's a bit chilly but I'll be buzzing around for pollen soon!", loc, flower),
		}
	case MorningRush:
		adj := "a bright and sunny"
		if cloudy {
			adj = "an overcast but bright"
		}
		return branch{
			scenario: fmt.Sprintf("It's peak morning rush in %s. The bee is actively collecting nectar, its head buried deep inside a blooming %s. Its legs are covered with colorful clumps of pollen. The scene is set in a garden under %s sky.", loc, flower, adj),
			lighting: "The lighting is bright and clear.",
			message:  fmt.Sprintf("It's a busy morning in %s! The sun is out and I'm super busy collecting nectar from this yummy %s. My legs are getting so full of pollen! It's a busy day at the office.", loc, flower),
		}
	case Midday:
		adj := "a high and bright"
		if cloudy {
			adj = "a hazy"
		}
		return branch{
			scenario: fmt.Sprintf("During the midday hustle in %s, the bee is pictured deep within a field of wildflowers, hovering over a beautiful %s. The sun is %s. In the distance, younger bees can be seen on swirling 'orientation flights' near their hive.", loc, flower, adj),
			lighting: "The lighting is direct and intense, casting short shadows.",
			message:  fmt.Sprintf("It's a beautiful afternoon here in %s! I've traveled pretty far from my hive to find the best flowers, like this lovely %s. I can see some of the younger bees learning how to fly back home. So much to do!", loc, flower),
		}
	case Evening:
		return branch{
			scenario: fmt.Sprintf("As the sun sets over %s, foraging is stopping. The bee is seen returning to the hive entrance. Other bees are clustering on the outside of the hive ('bearding') to help regulate its temperature on a warm evening.", loc),
			lighting: "The lighting is golden and warm, with long shadows from the setting sun.",
			message:  fmt.Sprintf("The sun is going down over %s, so it's time to head back to the hive after a long day. It's getting cozy here at the entrance with all my friends. We're getting ready to turn all this nectar into honey tonight!", loc),
		}
	default:
		return branch{
			scenario: fmt.Sprintf("It is dark in %s. Inside the hive, which never truly sleeps, this bee is in a short rest cycle, its antennae drooping. Other worker bees around it are busy building new honeycomb, fanning their wings to control temperature, and tending to the queen.", loc),
			lighting: "The scene is illuminated only by the warm, internal glow of the hive, creating a dark and moody atmosphere.",
			message:  fmt.Sprintf("Shhh, I'm taking a quick nap inside my warm hive in %s. It's dark outside, but some of my friends are still working hard, taking care of the queen and making honey. I'll be up soon to go and collect pollen!", loc),
		}
	}
}

// Compose builds the image prompt and the bee's message for c.
func Compose(c Context) Scene {
	b := SelectBucket(c.WeatherDescription, c.Hour)
	br := branchFor(b, c)

	prompt := fmt.Sprintf(researchBlock, c.FlowerName) + "\n\n" + strings.Join([]string{
		fmt.Sprintf(baseSentence, c.BeeName),
		br.scenario,
		br.lighting,
		styleSentence,
	}, " ")

	return Scene{Bucket: b, Prompt: prompt, Message: br.message}
}

// ComposePrompt returns only the image prompt for c.
func ComposePrompt(c Context) string {
	return Compose(c).Prompt
}

// ComposeMessage returns only the first-person message for c.
func ComposeMessage(c Context) string {
	return Compose(c).Message
}

// ParseFlower recovers the flower name from a composed prompt.
func ParseFlower(prompt string) (string, bool) {
	return quotedAfter(prompt, "visual characteristics of the flower: ")
}

// ParseBeeName recovers the bee name from a composed prompt.
func ParseBeeName(prompt string) (string, bool) {
	return quotedAfter(prompt, "inspired by the personality of ")
}

func quotedAfter(s, marker string) (string, bool) {
	i := strings.Index(s, marker)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(marker):]
	// names are written with %q, so skip escaped quotes
	if !strings.HasPrefix(rest, `"`) {
		return "", false
	}
	for j := 1; j < len(rest); j++ {
		switch rest[j] {
		case '\\':
			j++
		case '"':
			out, err := strconv.Unquote(rest[:j+1])
			if err != nil {
				return "", false
			}
			return out, true
		}
	}
	return "", false
}
