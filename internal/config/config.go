package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type UserID struct {
	Username string `mapstructure:"Username"`
	Password string `mapstructure:"Password"`
}

type Sensor struct {
	Name              string  `mapstructure:"Name"`
	Mean              float64 `mapstructure:"Mean"`
	StandardDeviation float64 `mapstructure:"StandardDeviation"`
}

type Certificate struct {
	AdditionalHosts []string `mapstructure:"HOSTS"`
	AdditionalIPs   []string `mapstructure:"IPS"`
	PKIDir          string   `mapstructure:"PKI_DIR"`
}

type Logger struct {
	Level            string `mapstructure:"Level"`
	Format           string `mapstructure:"Format"`
	DisableTimestamp bool   `mapstructure:"DisableTimestamp"`
}

type Metrics struct {
	Enabled bool `mapstructure:"Enabled"`
	Port    int  `mapstructure:"Port"`
}

type Config struct {
	Host                  string      `mapstructure:"HOST"`
	Port                  int         `mapstructure:"PORT"`
	UpdateIntervalSeconds int         `mapstructure:"UPDATE_INTERVAL_SECONDS"`
	DescriptorPath        string      `mapstructure:"DESCRIPTOR_PATH"`
	Sensor                Sensor      `mapstructure:"SENSOR"`
	UserIds               []UserID    `mapstructure:"USERIDs"`
	Certificate           Certificate `mapstructure:"CERTIFICATE"`
	Logger                Logger      `mapstructure:"LOGGER"`
	Metrics               Metrics     `mapstructure:"METRICS"`
}

// Get reads the configuration from ./configs/config.json, falling back to
// coded defaults when no file is present.
func Get() Config {
	v := viper.New()
	var config Config
	logger := logrus.New()

	v.SetConfigName("config")    // name of config file (without extension)
	v.SetConfigType("json")      // REQUIRED if the config file does not have the extension in the name
	v.AddConfigPath("./configs") // look for config in the working directory

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warnln("Config file not found! using default configs..")
			setDefault(v)
		} else {
			logger.Errorln("Config file was found but another error was produced")
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	} else {
		logger.Infoln("Config file found and successfully parsed")
	}

	setDefault(v)
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("unable to decode into struct %w", err))
	}

	return config
}

func setDefault(v *viper.Viper) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	v.SetDefault("HOST", hostname)
	v.SetDefault("PORT", 4840)
	v.SetDefault("UPDATE_INTERVAL_SECONDS", 1)
	v.SetDefault("DESCRIPTOR_PATH", "server.xml")
	v.SetDefault("SENSOR", Sensor{
		Name:              "Temperature",
		Mean:              20.0,
		StandardDeviation: 5.0,
	})
	v.SetDefault("USERIDs", []UserID{
		{
			Username: "root",
			Password: "secret",
		},
	})
	v.SetDefault("CERTIFICATE", Certificate{
		AdditionalHosts: []string{},
		AdditionalIPs:   []string{},
		PKIDir:          "./uaServerCerts/pki",
	})
	v.SetDefault("LOGGER", Logger{
		Level:  "info",
		Format: "text",
	})
	v.SetDefault("METRICS", Metrics{
		Enabled: false,
		Port:    2112,
	})
}
