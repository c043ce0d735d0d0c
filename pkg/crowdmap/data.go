package crowdmap

var categories = []Category{
	{
		ID:       "grocery",
		Name:     "Grocery Stores",
		Keywords: []string{"walmart", "grocery", "supermarket", "food", "metro", "loblaws", "no frills"},
		Color:    "#10B981",
	},
	{
		ID:       "restaurant",
		Name:     "Restaurants",
		Keywords: []string{"restaurant", "food", "dining", "cafe", "eatery", "mcdonald", "tim hortons", "pizza", "rex den"},
		Color:    "#F59E0B",
	},
	{
		ID:       "coffee",
		Name:     "Coffee Shops",
		Keywords: []string{"coffee", "starbucks", "cafe", "tim hortons", "chatime", "tea"},
		Color:    "#78350F",
	},
	{
		ID:       "gym",
		Name:     "Gyms & Sports",
		Keywords: []string{"gym", "fitness", "workout", "goodlife", "planet fitness", "pan am", "tpasc", "sports"},
		Color:    "#059669",
	},
	{
		ID:       "library",
		Name:     "Libraries & Study",
		Keywords: []string{"library", "study", "books", "research", "quiet", "reading"},
		Color:    "#3B82F6",
	},
	{
		ID:       "nature",
		Name:     "Nature & Trails",
		Keywords: []string{"trail", "valley", "nature", "park", "outdoor", "highland", "creek", "walk"},
		Color:    "#16A34A",
	},
}

var locations = []Location{
	{
		ID: "utsc-library", Name: "UTSC Library", Category: "library",
		Lat: 43.7841, Lng: -79.1871,
		Address:      "1265 Military Trail, Scarborough",
		Description:  "Study space with books and quiet areas",
		BusySchedule: GenerateSchedule([]int{10, 11, 14, 15, 16, 17, 18}, KindLibrary),
	},
	{
		ID: "valley-trail", Name: "Valley Land Trail", Category: "nature",
		Lat: 43.7835, Lng: -79.1880,
		Address:      "UTSC Campus - Valley Access",
		Description:  "Accessible trail with nature views",
		BusySchedule: GenerateSchedule([]int{12, 13, 16, 17}, KindNature),
	},
	{
		ID: "tpasc", Name: "Toronto Pan Am Sports Centre", Category: "gym",
		Lat: 43.7848, Lng: -79.1883,
		Address:      "875 Morningside Ave, Scarborough",
		Description:  "Large fitness facility with pools and gym",
		BusySchedule: GenerateSchedule([]int{7, 8, 17, 18, 19}, KindGym),
	},
	{
		ID: "rexs-den", Name: "Rex's Den", Category: "restaurant",
		Lat: 43.7844, Lng: -79.1868,
		Address:      "UTSC Student Centre",
		Description:  "Campus eatery",
		BusySchedule: GenerateSchedule([]int{12, 13, 17, 18}, KindRestaurant),
	},
	{
		ID: "chatime-utsc", Name: "Chatime", Category: "coffee",
		Lat: 43.7842, Lng: -79.1870,
		Address:      "UTSC Student Centre",
		Description:  "Bubble tea shop",
		BusySchedule: GenerateSchedule([]int{12, 13, 14, 15, 16}, KindCoffee),
	},
	{
		ID: "timhortons-utsc", Name: "Tim Hortons UTSC", Category: "coffee",
		Lat: 43.7838, Lng: -79.1872,
		Address:      "UTSC Campus",
		Description:  "Coffee shop",
		BusySchedule: GenerateSchedule([]int{8, 9, 12, 13}, KindCoffee),
	},
	{
		ID: "walmart-1", Name: "Walmart Supercentre", Category: "grocery",
		Lat: 43.7850, Lng: -79.1950,
		Address:      "4040 Lawrence Ave E, Scarborough",
		Description:  "Large supermarket",
		BusySchedule: GenerateSchedule([]int{11, 12, 17, 18}, KindGrocery),
	},
	{
		ID: "metro-1", Name: "Metro", Category: "grocery",
		Lat: 43.7830, Lng: -79.1850,
		Address:      "300 Borough Dr, Scarborough",
		Description:  "Grocery store",
		BusySchedule: GenerateSchedule([]int{10, 11, 16, 17}, KindGrocery),
	},
}

// Categories returns a copy of the known categories.
func Categories() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		c.Keywords = append([]string(nil), c.Keywords...)
		out[i] = c
	}
	return out
}

// Locations returns a copy of the known locations.
func Locations() []Location {
	out := make([]Location, len(locations))
	for i, l := range locations {
		l.BusySchedule = append([]BusyPeriod(nil), l.BusySchedule...)
		out[i] = l
	}
	return out
}

// LocationByID looks a location up by its ID.
func LocationByID(id string) (Location, bool) {
	for _, l := range Locations() {
		if l.ID == id {
			return l, true
		}
	}
	return Location{}, false
}
