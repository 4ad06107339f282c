package config

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hevcpress/internal/dirs"
	"hevcpress/internal/model"
)

// Defaults for the encoding profiles. The GPU CQ value approximates the
// visual quality of CRF 20 on libx265.
const (
	DefaultCPUCRF       = 20
	DefaultCPUPreset    = "medium"
	DefaultGPUCQ        = 23
	DefaultGPUPreset    = "medium"
	DefaultAudioCodec   = "aac"
	DefaultAudioBitrate = "192k"
	DefaultStallTimeout = 5 * time.Minute
)

// Init wires Viper with config paths, env, defaults, and flag bindings.
// It is non-fatal: any errors are returned for optional handling by caller.
func Init(root *cobra.Command) error {
	// Ensure base directories exist
	_ = dirs.EnsureAll()

	// Setup config search path
	if cfgDir, err := dirs.ConfigDir(); err == nil {
		_ = dirs.Ensure(cfgDir)
		viper.AddConfigPath(cfgDir)
	}
	viper.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	// Environment variables: HEVCPRESS_*
	viper.SetEnvPrefix("HEVCPRESS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Encoding defaults, overridable from config file or environment
	viper.SetDefault("cpu_crf", DefaultCPUCRF)
	viper.SetDefault("cpu_preset", DefaultCPUPreset)
	viper.SetDefault("gpu_cq", DefaultGPUCQ)
	viper.SetDefault("gpu_preset", DefaultGPUPreset)
	viper.SetDefault("audio_codec", DefaultAudioCodec)
	viper.SetDefault("audio_bitrate", DefaultAudioBitrate)
	viper.SetDefault("stall_timeout", DefaultStallTimeout)

	// Bind root persistent flags to Viper keys
	_ = viper.BindPFlag("ffmpeg", root.PersistentFlags().Lookup("ffmpeg"))
	_ = viper.BindPFlag("ffprobe", root.PersistentFlags().Lookup("ffprobe"))
	_ = viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("jobs", root.PersistentFlags().Lookup("jobs"))

	// Read config file if present (ignore not found)
	_ = viper.ReadInConfig()

	return nil
}

// Settings materializes the immutable encode settings from Viper state.
// Tool paths are left as configured; callers resolve them against PATH.
func Settings() model.Settings {
	s := model.Settings{
		FFmpegPath:   viper.GetString("ffmpeg"),
		FFprobePath:  viper.GetString("ffprobe"),
		CPUCRF:       viper.GetInt("cpu_crf"),
		CPUPreset:    viper.GetString("cpu_preset"),
		GPUCQ:        viper.GetInt("gpu_cq"),
		GPUPreset:    viper.GetString("gpu_preset"),
		AudioCodec:   viper.GetString("audio_codec"),
		AudioBitrate: viper.GetString("audio_bitrate"),
		StallTimeout: viper.GetDuration("stall_timeout"),
	}
	if s.CPUCRF <= 0 {
		s.CPUCRF = DefaultCPUCRF
	}
	if s.CPUPreset == "" {
		s.CPUPreset = DefaultCPUPreset
	}
	if s.GPUCQ <= 0 {
		s.GPUCQ = DefaultGPUCQ
	}
	if s.GPUPreset == "" {
		s.GPUPreset = DefaultGPUPreset
	}
	if s.AudioCodec == "" {
		s.AudioCodec = DefaultAudioCodec
	}
	if s.AudioBitrate == "" {
		s.AudioBitrate = DefaultAudioBitrate
	}
	if s.StallTimeout <= 0 {
		s.StallTimeout = DefaultStallTimeout
	}
	return s
}
