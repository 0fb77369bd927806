// Package cmd implements the cidevtool CLI commands using the cobra
// framework.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/atsushieno/midicci-sub001/cidevice"
)

var (
	// global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cidevtool",
	Short: "cidevtool - MIDI-CI protocol engine diagnostics",
	Long: `cidevtool exercises the MIDI-CI protocol engine without real MIDI
hardware: it runs two in-process devices joined by a loopback transport
and walks them through discovery, profile negotiation and property
exchange, dumping every payload on the wire at debug level (--verbose).`,
	Version:      "0.1.0",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"debug-level logging")

	rootCmd.AddCommand(loopbackCmd)
}

// newLogger builds the tool logger: logrus to stderr, optionally teed
// into a rotating file when log.file is configured.
func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	if verbose || viper.GetBool("log.verbose") {
		l.SetLevel(logrus.DebugLevel)
	}
	if file := viper.GetString("log.file"); file != "" {
		l.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    viper.GetInt("log.max_size_mb"),
			MaxBackups: viper.GetInt("log.max_backups"),
		}))
	}
	return l
}

// loadConfig reads the optional config file and maps it onto the engine
// configuration.
func loadConfig() (cidevice.Config, error) {
	viper.SetDefault("device.manufacturer", 0x123456)
	viper.SetDefault("device.product_instance_id", "cidevtool")
	viper.SetEnvPrefix("CIDEVTOOL")
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return cidevice.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := cidevice.DefaultConfig()
	cfg.DeviceInfo.Manufacturer = uint32(viper.GetInt("device.manufacturer"))
	cfg.DeviceInfo.Family = uint16(viper.GetInt("device.family"))
	cfg.DeviceInfo.Model = uint16(viper.GetInt("device.model"))
	cfg.DeviceInfo.SoftwareRevision = uint32(viper.GetInt("device.revision"))
	cfg.DeviceInfo.ManufacturerName = viper.GetString("device.manufacturer_name")
	cfg.DeviceInfo.ModelName = viper.GetString("device.model_name")
	cfg.ProductInstanceID = viper.GetString("device.product_instance_id")
	if size := viper.GetInt("property.max_chunk_size"); size > 0 {
		cfg.MaxPropertyChunkSize = size
	}
	if size := viper.GetInt("receivable_max_sysex_size"); size > 0 {
		cfg.ReceivableMaxSysExSize = size
	}
	if raw := viper.GetString("channel_list"); raw != "" {
		cfg.ChannelList = json.RawMessage(raw)
	}
	return cfg, nil
}
