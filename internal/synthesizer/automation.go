package synthesizer

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/homesight/homesight/pkg/models"
)

// Typed automation document marshalled to YAML for users to paste into
// their platform configuration.

type automationDoc struct {
	Automation automationBody `yaml:"automation"`
}

type automationBody struct {
	Alias       string    `yaml:"alias"`
	Description string    `yaml:"description"`
	Trigger     []trigger `yaml:"trigger"`
	Action      []step    `yaml:"action"`
}

type trigger struct {
	Platform  string `yaml:"platform"`
	At        string `yaml:"at,omitempty"`
	SubjectID string `yaml:"entity_id,omitempty"`
	To        string `yaml:"to,omitempty"`
	Minutes   string `yaml:"minutes,omitempty"`
}

type target struct {
	SubjectID string `yaml:"entity_id"`
}

type delay struct {
	Minutes int `yaml:"minutes"`
}

type step struct {
	Service   string         `yaml:"service,omitempty"`
	Target    *target        `yaml:"target,omitempty"`
	Data      map[string]any `yaml:"data,omitempty"`
	Delay     *delay         `yaml:"delay,omitempty"`
	Condition string         `yaml:"condition,omitempty"`
	SubjectID string         `yaml:"entity_id,omitempty"`
	State     string         `yaml:"state,omitempty"`
	Choose    []chooseBranch `yaml:"choose,omitempty"`
}

type chooseBranch struct {
	Conditions []step `yaml:"conditions"`
	Sequence   []step `yaml:"sequence"`
}

func renderAutomation(comment string, body automationBody) string {
	out, err := yaml.Marshal(automationDoc{Automation: body})
	if err != nil {
		// the document is built from plain structs, marshalling
		// cannot realistically fail
		return ""
	}
	return "# " + comment + "\n" + string(out)
}

// defaultActions maps a controllable category to its stock turn-on
// behavior, keeping the per-category defaults data-driven
var defaultActions = map[models.Category]func(subjectID string) step{
	models.CategoryLight: func(subjectID string) step {
		return step{
			Service: "light.turn_on",
			Target:  &target{SubjectID: subjectID},
			Data:    map[string]any{"brightness_pct": 80},
		}
	},
	models.CategorySwitch: func(subjectID string) step {
		return step{Service: "switch.turn_on", Target: &target{SubjectID: subjectID}}
	},
	models.CategoryClimate: func(subjectID string) step {
		return step{
			Service: "climate.set_temperature",
			Target:  &target{SubjectID: subjectID},
			Data:    map[string]any{"temperature": 21},
		}
	},
	models.CategoryCover: func(subjectID string) step {
		return step{Service: "cover.open_cover", Target: &target{SubjectID: subjectID}}
	},
}

func defaultAction(subjectID string) step {
	category := models.CategoryOf(subjectID)
	if gen, ok := defaultActions[category]; ok {
		return gen(subjectID)
	}
	return step{
		Service: fmt.Sprintf("%s.turn_on", category),
		Target:  &target{SubjectID: subjectID},
	}
}

func turnOn(subjectID string) step {
	return step{
		Service: fmt.Sprintf("%s.turn_on", models.CategoryOf(subjectID)),
		Target:  &target{SubjectID: subjectID},
	}
}

func turnOff(subjectID string) step {
	return step{
		Service: fmt.Sprintf("%s.turn_off", models.CategoryOf(subjectID)),
		Target:  &target{SubjectID: subjectID},
	}
}

func stateCondition(subjectID, state string) step {
	return step{Condition: "state", SubjectID: subjectID, State: state}
}

// timeAutomationYAML builds a time-trigger automation with the
// category's default action
func timeAutomationYAML(subjectID string, activeHours []int) string {
	triggers := make([]trigger, len(activeHours))
	for i, h := range activeHours {
		triggers[i] = trigger{Platform: "time", At: fmt.Sprintf("%02d:00:00", h)}
	}

	body := automationBody{
		Alias:       fmt.Sprintf("Scheduled control for %s", subjectID),
		Description: fmt.Sprintf("Automatically control %s at scheduled times", subjectID),
		Trigger:     triggers,
		Action:      []step{defaultAction(subjectID)},
	}
	return renderAutomation(fmt.Sprintf("Time-based automation for %s", subjectID), body)
}

// stateAutomationYAML builds a state-trigger automation specialized by
// the related subject's role
func stateAutomationYAML(subjectID, relatedID string) string {
	relatedCategory := models.CategoryOf(relatedID)

	trig := trigger{Platform: "state", SubjectID: relatedID}
	if relatedCategory == models.CategoryBinarySensor {
		trig.To = "on"
	}

	var actions []step
	switch {
	case relatedCategory == models.CategoryBinarySensor && contains(relatedID, "motion"):
		// occupancy lighting: on with motion, off after the sensor
		// clears and a 5 minute debounce
		actions = append(actions, defaultAction(subjectID))
		actions = append(actions,
			step{Delay: &delay{Minutes: 5}},
			stateCondition(relatedID, "off"),
			turnOff(subjectID),
		)

	case relatedCategory == models.CategoryBinarySensor && (contains(relatedID, "door") || contains(relatedID, "window")):
		if models.CategoryOf(subjectID) == models.CategoryClimate {
			actions = []step{{Choose: []chooseBranch{
				{
					Conditions: []step{stateCondition(relatedID, "on")},
					Sequence: []step{{
						Service: "climate.set_hvac_mode",
						Target:  &target{SubjectID: subjectID},
						Data:    map[string]any{"hvac_mode": "off"},
					}},
				},
				{
					Conditions: []step{stateCondition(relatedID, "off")},
					Sequence: []step{{
						Service: "climate.set_hvac_mode",
						Target:  &target{SubjectID: subjectID},
						Data:    map[string]any{"hvac_mode": "heat_cool"},
					}},
				},
			}}}
		} else {
			actions = []step{{Choose: []chooseBranch{
				{
					Conditions: []step{stateCondition(relatedID, "on")},
					Sequence:   []step{turnOn(subjectID)},
				},
				{
					Conditions: []step{stateCondition(relatedID, "off")},
					Sequence:   []step{turnOff(subjectID)},
				},
			}}}
		}

	case relatedCategory == models.CategoryPerson || relatedCategory == models.CategoryDeviceTracker:
		actions = []step{{Choose: []chooseBranch{
			{
				Conditions: []step{stateCondition(relatedID, "home")},
				Sequence:   []step{turnOn(subjectID)},
			},
			{
				Conditions: []step{stateCondition(relatedID, "not_home")},
				Sequence:   []step{turnOff(subjectID)},
			},
		}}}

	default:
		actions = []step{turnOn(subjectID)}
	}

	body := automationBody{
		Alias:       fmt.Sprintf("Control %s based on %s", subjectID, relatedID),
		Description: fmt.Sprintf("Automatically control %s when %s changes state", subjectID, relatedID),
		Trigger:     []trigger{trig},
		Action:      actions,
	}
	return renderAutomation(
		fmt.Sprintf("State-based automation for %s based on %s", subjectID, relatedID), body)
}

// climateAdjustmentYAML builds a periodic corrective setpoint automation
func climateAdjustmentYAML(climateID string, targetTemp float64) string {
	body := automationBody{
		Alias:       fmt.Sprintf("Adjust temperature for %s", climateID),
		Description: "Set temperature to improve comfort",
		Trigger:     []trigger{{Platform: "time_pattern", Minutes: "/30"}},
		Action: []step{{
			Service: "climate.set_temperature",
			Target:  &target{SubjectID: climateID},
			Data:    map[string]any{"temperature": targetTemp},
		}},
	}
	return renderAutomation(fmt.Sprintf("Climate adjustment for %s", climateID), body)
}
