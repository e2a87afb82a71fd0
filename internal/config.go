// Simulator configuration

// The configuration is loaded from a YAML file, with the following structure:
//
//  rtos_config:
//    log_config:
//      ...
//    scheduler_config:
//      policy: fixed_priority
//      priority_inheritance: true
//    timeline_config:
//      ...
//
// The "rtos_config" section maps to the RtosConfig structure defined in this
// package. The scheduler_config section is read by NewScheduler; the canned
// scenarios run by the demo CLI each set their own policy and priority
// inheritance setting, so it does not affect them.

package rtos_internal

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	RTOS_CONFIG_SECTION_NAME = "rtos_config"

	SCHEDULER_CONFIG_POLICY_DEFAULT               = "fixed_priority"
	SCHEDULER_CONFIG_PRIORITY_INHERITANCE_DEFAULT = true
)

type SchedulerConfig struct {
	// The scheduling policy: "fixed_priority" or "rate_monotonic":
	Policy string `yaml:"policy"`
	// Whether mutexes apply the priority inheritance protocol:
	PriorityInheritance bool `yaml:"priority_inheritance"`
}

func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Policy:              SCHEDULER_CONFIG_POLICY_DEFAULT,
		PriorityInheritance: SCHEDULER_CONFIG_PRIORITY_INHERITANCE_DEFAULT,
	}
}

type RtosConfig struct {
	// Specific components configuration.
	LoggerConfig    *LoggerConfig    `yaml:"log_config"`
	SchedulerConfig *SchedulerConfig `yaml:"scheduler_config"`
	TimelineConfig  *TimelineConfig  `yaml:"timeline_config"`
}

func DefaultRtosConfig() *RtosConfig {
	return &RtosConfig{
		LoggerConfig:    DefaultLoggerConfig(),
		SchedulerConfig: DefaultSchedulerConfig(),
		TimelineConfig:  DefaultTimelineConfig(),
	}
}

// LoadConfig loads the configuration from the specified YAML file (or buffer,
// for testing): the rtos_config section is returned as a *RtosConfig
// structure primed with default values. Additionally an error is returned if
// the configuration could not be loaded or parsed.
func LoadConfig(cfgFile string, buf []byte) (*RtosConfig, error) {
	if buf == nil {
		// Normal case, buf is pre-populated only for testing.
		f, err := os.Open(cfgFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		buf, err = io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
		}
	}

	docNode := yaml.Node{}
	err := yaml.Unmarshal(buf, &docNode)
	if err != nil {
		return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
	}

	rtosConfig := DefaultRtosConfig()
	if docNode.Kind == yaml.DocumentNode && len(docNode.Content) > 0 {
		rootNode := docNode.Content[0]
		if rootNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("file: %q: invalid YAML root node %q", cfgFile, rootNode.Tag)
		}
		var toCfg any = nil
		for _, n := range rootNode.Content {
			if n.Kind == yaml.ScalarNode {
				if n.Value == RTOS_CONFIG_SECTION_NAME {
					toCfg = rtosConfig
				}
				continue
			}
			if n.Kind == yaml.MappingNode && toCfg != nil {
				if err = n.Decode(toCfg); err != nil {
					return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
				}
			}
			toCfg = nil
		}
	}

	return rtosConfig, nil
}
