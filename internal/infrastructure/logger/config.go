package logger

import (
	"os"
	"runtime"
)

type Config struct {
	Level      Level             `json:"level"       yaml:"level"       mapstructure:"-"`
	LevelName  string            `json:"level_name"  yaml:"level_name"  mapstructure:"level"       validate:"omitempty,oneof=debug info warn warning error fatal"`
	Format     string            `json:"format"      yaml:"format"      mapstructure:"format"      validate:"omitempty,oneof=json text console"`
	Output     string            `json:"output"      yaml:"output"      mapstructure:"output"      validate:"omitempty,oneof=stdout stderr file"`
	FilePath   string            `json:"file_path"   yaml:"file_path"   mapstructure:"file_path"`
	MaxSize    int               `json:"max_size"    yaml:"max_size"    mapstructure:"max_size"    validate:"gte=0"` // MB
	MaxBackups int               `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups" validate:"gte=0"`
	MaxAge     int               `json:"max_age"     yaml:"max_age"     mapstructure:"max_age"     validate:"gte=0"` // days
	Compress   bool              `json:"compress"    yaml:"compress"    mapstructure:"compress"`
	Fields     map[string]string `json:"fields"      yaml:"fields"      mapstructure:"fields"` // static fields for k8s/docker
}

// Resolve fills Level from LevelName. An unparseable name keeps the current Level.
func (c *Config) Resolve() {
	if lvl, err := ParseLevel(c.LevelName); err == nil {
		c.Level = lvl
	}
}

func GetDefaultFields() Fields {
	hostname, _ := os.Hostname()

	fields := Fields{
		"hostname":   hostname,
		"pid":        os.Getpid(),
		"go_version": runtime.Version(),
		"service":    "scoreboard-sse",
	}

	// Kubernetes fields
	if namespace := os.Getenv("KUBERNETES_NAMESPACE"); namespace != "" {
		fields["k8s_namespace"] = namespace
	}
	if podName := os.Getenv("KUBERNETES_POD_NAME"); podName != "" {
		fields["k8s_pod"] = podName
	}

	if appVersion := os.Getenv("APP_VERSION"); appVersion != "" {
		fields["app_version"] = appVersion
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		fields["environment"] = env
	}

	return fields
}

func NewDefaultConfig() *Config {
	config := &Config{
		Level:      LevelInfo,
		LevelName:  "info",
		Format:     "console",
		Output:     "stdout",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
		Fields:     make(map[string]string),
	}

	for k, v := range GetDefaultFields() {
		if str, ok := v.(string); ok {
			config.Fields[k] = str
		}
	}

	return config
}
