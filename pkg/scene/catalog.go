package scene

// BeeCharacter is a selectable bee persona.
type BeeCharacter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Flipped     bool   `json:"flipped"`
}

// DefaultFlowerKey is used for states without their own list.
const DefaultFlowerKey = "default"

var BeeCharacters = []BeeCharacter{
	{Name: "Bumble Bumbleton", Description: "A fuzzy, easygoing bumblebee who never rushes a good flower.", Color: "#F6C744", Flipped: false},
	{Name: "Buzz Lightwing", Description: "A daring forager who always flies one field further than the rest.", Color: "#F2A541", Flipped: true},
	{Name: "Queen Beatrice", Description: "A regal bee with a keen eye for the finest blossoms.", Color: "#C98BDB", Flipped: false},
	{Name: "Professor Pollen", Description: "A studious bee who knows the name of every flower in the garden.", Color: "#8FB996", Flipped: true},
	{Name: "Honey Bunny", Description: "A sweet, cheerful bee who hums while she works.", Color: "#FFD166", Flipped: false},
	{Name: "Sir Stings-a-Lot", Description: "A brave guard bee who takes hive security very seriously.", Color: "#EF6F6C", Flipped: true},
	{Name: "Dizzy Dancer", Description: "A waggle-dance champion who can't stop twirling.", Color: "#7EC4CF", Flipped: false},
	{Name: "Sleepy Sue", Description: "A gentle bee who loves an afternoon nap in a warm petal.", Color: "#B8B8D1", Flipped: true},
}

var BeeFacts = []string{
	"Honey bees visit about two million flowers to make a single pound of honey.",
	"A honey bee's wings beat about 200 times per second, which is what makes their famous buzz.",
	"Bees communicate the location of flowers to their hive mates with a 'waggle dance'.",
	"There are more than 4,000 species of bees native to the United States.",
	"Most native bees are solitary and do not live in hives at all.",
	"Bumblebees can 'buzz pollinate', shaking pollen loose from flowers like tomatoes and blueberries.",
	"A worker honey bee makes only about one twelfth of a teaspoon of honey in her lifetime.",
	"Bees can see ultraviolet light, which reveals hidden patterns on flower petals.",
	"Mason bees build their nests in hollow stems and seal each chamber with mud.",
	"A queen honey bee can lay up to 2,000 eggs in a single day.",
	"Bees have five eyes: two large compound eyes and three small simple eyes on top of their head.",
	"Sweat bees are attracted to the salt in human perspiration.",
}

// Personalities and CommonFlowers feed the single-shot prompt.
var Personalities = []string{
	"a busy", "a curious", "a friendly", "a fluffy",
	"a gentle", "a happy", "a sleepy", "a tiny", "a buzzy", "a cheerful",
}

var CommonFlowers = []string{
	"a sunflower", "a lavender flower", "a clover blossom", "a daisy",
	"a dandelion", "a poppy", "a coneflower", "an aster", "a salvia",
	"a bee balm flower",
}

// Flowers maps a two-letter state abbreviation to bee-friendly local flowers.
var Flowers = map[string][]string{
	DefaultFlowerKey: {"Sunflower", "Purple Coneflower", "Black-eyed Susan", "Wild Bergamot", "Goldenrod"},

	"AL": {"Camellia", "Oakleaf Hydrangea", "Coral Honeysuckle"},
	"AK": {"Forget-me-not", "Fireweed", "Arctic Lupine"},
	"AZ": {"Saguaro Blossom", "Desert Marigold", "Globe Mallow"},
	"AR": {"Apple Blossom", "Purple Passionflower", "Butterfly Milkweed"},
	"CA": {"California Poppy", "California Lilac", "Douglas Iris"},
	"CO": {"Rocky Mountain Columbine", "Blanket Flower", "Rocky Mountain Bee Plant"},
	"CT": {"Mountain Laurel", "New England Aster", "Wild Geranium"},
	"DE": {"Peach Blossom", "Swamp Milkweed", "Joe Pye Weed"},
	"DC": {"American Beauty Rose", "Black-eyed Susan", "Wild Bergamot"},
	"FL": {"Orange Blossom", "Tickseed", "Beach Sunflower"},
	"GA": {"Cherokee Rose", "Purple Coneflower", "Blazing Star"},
	"HI": {"Yellow Hibiscus", "Ohia Lehua", "Naupaka"},
	"ID": {"Syringa", "Arrowleaf Balsamroot", "Camas"},
	"IL": {"Violet", "Prairie Blazing Star", "Pale Purple Coneflower"},
	"IN": {"Peony", "Wild Bergamot", "Rose Mallow"},
	"IA": {"Wild Prairie Rose", "Prairie Clover", "Rattlesnake Master"},
	"KS": {"Sunflower", "Purple Prairie Clover", "Butterfly Milkweed"},
	"KY": {"Goldenrod", "Wild Columbine", "Ironweed"},
	"LA": {"Magnolia", "Louisiana Iris", "Coral Honeysuckle"},
	"ME": {"White Pine Cone and Tassel", "Lupine", "Wild Blueberry Blossom"},
	"MD": {"Black-eyed Susan", "Swamp Rose Mallow", "Mountain Mint"},
	"MA": {"Mayflower", "New England Aster", "Sweet Pepperbush"},
	"MI": {"Apple Blossom", "Dwarf Lake Iris", "Wild Lupine"},
	"MN": {"Pink and White Lady's Slipper", "Wild Bergamot", "Anise Hyssop"},
	"MS": {"Magnolia", "Coreopsis", "Mistflower"},
	"MO": {"White Hawthorn Blossom", "Purple Coneflower", "Missouri Evening Primrose"},
	"MT": {"Bitterroot", "Beargrass", "Blanket Flower"},
	"NE": {"Goldenrod", "Prairie Coneflower", "Spiderwort"},
	"NV": {"Sagebrush", "Desert Globemallow", "Prickly Poppy"},
	"NH": {"Purple Lilac", "Pink Lady's Slipper", "Fireweed"},
	"NJ": {"Common Meadow Violet", "Swamp Milkweed", "Seaside Goldenrod"},
	"NM": {"Yucca Flower", "Apache Plume", "Desert Zinnia"},
	"NY": {"Rose", "Joe Pye Weed", "New York Aster"},
	"NC": {"Flowering Dogwood", "Carolina Lily", "Swamp Sunflower"},
	"ND": {"Wild Prairie Rose", "Purple Coneflower", "Prairie Smoke"},
	"OH": {"Red Carnation", "Great Blue Lobelia", "Ohio Spiderwort"},
	"OK": {"Oklahoma Rose", "Indian Blanket", "Purple Poppy Mallow"},
	"OR": {"Oregon Grape", "Camas", "Red Flowering Currant"},
	"PA": {"Mountain Laurel", "Wild Bergamot", "Great Blue Lobelia"},
	"RI": {"Violet", "Beach Rose", "Sweet Pepperbush"},
	"SC": {"Yellow Jessamine", "Coral Honeysuckle", "Blazing Star"},
	"SD": {"Pasque Flower", "Purple Coneflower", "Prairie Clover"},
	"TN": {"Iris", "Passionflower", "Purple Coneflower"},
	"TX": {"Bluebonnet", "Indian Blanket", "Mexican Hat"},
	"UT": {"Sego Lily", "Firecracker Penstemon", "Rocky Mountain Bee Plant"},
	"VT": {"Red Clover", "Joe Pye Weed", "New England Aster"},
	"VA": {"Flowering Dogwood", "Virginia Bluebells", "Wild Bergamot"},
	"WA": {"Coast Rhododendron", "Oregon Grape", "Fireweed"},
	"WV": {"Rhododendron", "Wild Bergamot", "Ironweed"},
	"WI": {"Wood Violet", "Wild Lupine", "Prairie Blazing Star"},
	"WY": {"Indian Paintbrush", "Arrowleaf Balsamroot", "Sticky Geranium"},
}

// FlowersFor returns the flower list for a state, falling back to the default list.
func FlowersFor(state string) []string {
	if fs, ok := Flowers[state]; ok && len(fs) > 0 {
		return fs
	}
	return Flowers[DefaultFlowerKey]
}
