package models

import "strings"

// Category is the enumerated kind of a monitored subject, parsed from
// the subject id prefix ("light.kitchen" -> CategoryLight)
type Category string

const (
	CategoryLight         Category = "light"
	CategorySwitch        Category = "switch"
	CategoryClimate       Category = "climate"
	CategoryCover         Category = "cover"
	CategoryMediaPlayer   Category = "media_player"
	CategorySensor        Category = "sensor"
	CategoryBinarySensor  Category = "binary_sensor"
	CategoryPerson        Category = "person"
	CategoryDeviceTracker Category = "device_tracker"
	CategoryWeather       Category = "weather"
	CategorySun           Category = "sun"
	CategoryLock          Category = "lock"
	CategoryFan           Category = "fan"
	CategoryVacuum        Category = "vacuum"
	CategoryAutomation    Category = "automation"
	CategoryScene         Category = "scene"
	CategoryScript        Category = "script"
	CategoryUnknown       Category = ""
)

// Traits describes the analysis behavior for one category.
// The table keeps the per-category heuristics data-driven instead of
// scattering prefix checks through the analysis code.
type Traits struct {
	// Controllable subjects can be the target of generated automations
	Controllable bool
	// SensorLike subjects can serve as the related side of a correlation
	SensorLike bool
	// ScheduleMinable subjects participate in time-regularity analysis
	ScheduleMinable bool
}

var categoryTraits = map[Category]Traits{
	CategoryLight:         {Controllable: true, ScheduleMinable: true},
	CategorySwitch:        {Controllable: true, ScheduleMinable: true},
	CategoryClimate:       {Controllable: true, ScheduleMinable: true},
	CategoryCover:         {Controllable: true, ScheduleMinable: true},
	CategoryMediaPlayer:   {Controllable: true, ScheduleMinable: true},
	CategorySensor:        {SensorLike: true},
	CategoryBinarySensor:  {SensorLike: true},
	CategoryPerson:        {SensorLike: true},
	CategoryDeviceTracker: {SensorLike: true},
	CategoryWeather:       {},
	CategorySun:           {},
	CategoryLock:          {ScheduleMinable: true},
	CategoryFan:           {Controllable: true, ScheduleMinable: true},
	CategoryVacuum:        {Controllable: true, ScheduleMinable: true},
	CategoryAutomation:    {ScheduleMinable: true},
	CategoryScene:         {ScheduleMinable: true},
	CategoryScript:        {ScheduleMinable: true},
}

// DefaultTrackedCategories is the allow-list applied when no explicit
// tracking configuration is supplied
var DefaultTrackedCategories = []Category{
	CategoryLight, CategorySwitch, CategoryClimate, CategorySensor,
	CategoryBinarySensor, CategoryCover, CategoryMediaPlayer,
	CategoryPerson, CategoryDeviceTracker, CategoryAutomation,
	CategoryScene, CategoryScript,
}

// CategoryOf parses the category prefix from a subject id
func CategoryOf(subjectID string) Category {
	prefix, _, ok := strings.Cut(subjectID, ".")
	if !ok {
		return CategoryUnknown
	}
	c := Category(prefix)
	if _, known := categoryTraits[c]; !known {
		return CategoryUnknown
	}
	return c
}

// TraitsOf returns the trait row for a category. Unknown categories get
// the zero Traits, which excludes them from every analysis.
func TraitsOf(c Category) Traits {
	return categoryTraits[c]
}

var energyKeywords = []string{"power", "energy", "electricity", "consumption", "usage"}

var temperatureKeywords = []string{"temp", "temperature"}

// IsEnergySubject reports whether a subject looks like an energy meter
func IsEnergySubject(subjectID string) bool {
	if CategoryOf(subjectID) != CategorySensor {
		return false
	}
	return containsAny(subjectID, energyKeywords)
}

// IsTemperatureSubject reports whether a subject looks like a temperature sensor
func IsTemperatureSubject(subjectID string) bool {
	if CategoryOf(subjectID) != CategorySensor {
		return false
	}
	return containsAny(subjectID, temperatureKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
