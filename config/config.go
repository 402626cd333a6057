// vidfilter/config/config.go
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	FFBin            string        `mapstructure:"FF_BIN"`
	FFProbeBin       string        `mapstructure:"FFPROBE_BIN"`
	Port             string        `mapstructure:"PORT"`
	OutputDir        string        `mapstructure:"OUTPUT_DIR"`
	FrameDelay       time.Duration `mapstructure:"FRAME_DELAY"`
	CacheHashWidth   int           `mapstructure:"CACHE_HASH_WIDTH"`
	MaxConcurrency   int           `mapstructure:"MAX_CONCURRENCY"`
	QueueSize        int           `mapstructure:"QUEUE_SIZE"`
	MaxInputSize     int64         `mapstructure:"MAX_INPUT_SIZE"`
	ThrottleCPU      float64       `mapstructure:"THROTTLE_CPU"`
	ThrottleFreeMem  int64         `mapstructure:"THROTTLE_FREEMEM"`
	ThrottleFreeDisk int64         `mapstructure:"THROTTLE_FREEDISK"`
	AuthEnable       bool          `mapstructure:"AUTH_ENABLE"`
	AuthKey          string        `mapstructure:"AUTH_KEY"`
	DetectorBin      string        `mapstructure:"DETECTOR_BIN"`
	EncodeArgs       string        `mapstructure:"ENCODE_ARGS"`
	SampleVideos     []string      `mapstructure:"SAMPLE_VIDEOS"`
}

// stringToDurationHookFunc decodes duration strings like "10ms" into
// time.Duration fields.
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc decodes size strings like "200MB" into int64
// byte counts.
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(data.(string))); err != nil {
			// A plain number is handled by the default int64 decoding.
			return data, nil
		}
		return int64(size.Bytes()), nil
	}
}

func Load() (*Config, error) {
	vp := viper.New()

	// Set default values as strings, the hooks will handle them.
	vp.SetDefault("FF_BIN", "ffmpeg")
	vp.SetDefault("FFPROBE_BIN", "ffprobe")
	vp.SetDefault("PORT", "8080")
	vp.SetDefault("OUTPUT_DIR", "processed_videos")
	vp.SetDefault("FRAME_DELAY", "10ms")
	vp.SetDefault("CACHE_HASH_WIDTH", 8)
	vp.SetDefault("MAX_CONCURRENCY", 2)
	vp.SetDefault("QUEUE_SIZE", 100)
	vp.SetDefault("MAX_INPUT_SIZE", "200MB")
	vp.SetDefault("THROTTLE_CPU", 50.0)
	vp.SetDefault("THROTTLE_FREEMEM", "200MB")
	vp.SetDefault("THROTTLE_FREEDISK", "200MB")
	vp.SetDefault("AUTH_ENABLE", false)
	vp.SetDefault("AUTH_KEY", "123456")
	vp.SetDefault("DETECTOR_BIN", "")
	vp.SetDefault("ENCODE_ARGS", "")
	vp.SetDefault("SAMPLE_VIDEOS", []string{})

	// Load from config file
	vp.SetConfigName("vidfilter_config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")
	vp.AddConfigPath("/etc/vidfilter/")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Load from environment variables
	vp.SetEnvPrefix("VIDFILTER")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	// Unmarshal the config, providing our custom composed hooks.
	// The order matters: the first hook that succeeds is used.
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
		),
	))
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
