package excalidraw

import "github.com/goliatone/go-excalidraw/internal/runtimeconfig"

var (
	ErrTitlePrefixRequired     = runtimeconfig.ErrTitlePrefixRequired
	ErrSentinelRequired        = runtimeconfig.ErrSentinelRequired
	ErrSentinelsMustDiffer     = runtimeconfig.ErrSentinelsMustDiffer
	ErrV1SchemeInvalid         = runtimeconfig.ErrV1SchemeInvalid
	ErrChannelIDRequired       = runtimeconfig.ErrChannelIDRequired
	ErrStagingDirRequired      = runtimeconfig.ErrStagingDirRequired
	ErrStorageProviderUnknown  = runtimeconfig.ErrStorageProviderUnknown
	ErrStorageDriverUnknown    = runtimeconfig.ErrStorageDriverUnknown
	ErrStorageDSNRequired      = runtimeconfig.ErrStorageDSNRequired
	ErrJoplinTokenRequired     = runtimeconfig.ErrJoplinTokenRequired
	ErrLoggingProviderRequired = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown  = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid     = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid    = runtimeconfig.ErrLoggingFormatInvalid
	ErrTimeoutInvalid          = runtimeconfig.ErrTimeoutInvalid
)

type (
	Config          = runtimeconfig.Config
	ResourcesConfig = runtimeconfig.ResourcesConfig
	MarkdownConfig  = runtimeconfig.MarkdownConfig
	BridgeConfig    = runtimeconfig.BridgeConfig
	StagingConfig   = runtimeconfig.StagingConfig
	StorageConfig   = runtimeconfig.StorageConfig
	JoplinConfig    = runtimeconfig.JoplinConfig
	EditorConfig    = runtimeconfig.EditorConfig
	CommandsConfig  = runtimeconfig.CommandsConfig
	HTTPConfig      = runtimeconfig.HTTPConfig
	LoggingConfig   = runtimeconfig.LoggingConfig
	Features        = runtimeconfig.Features
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}
