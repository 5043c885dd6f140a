// Package config resolves milestoner's application settings with viper.
//
// Settings come, lowest precedence first, from built-in defaults, the
// milestoner.yaml config file, MILESTONER_ environment variables and the
// command flags listed in FlagBindings:
//
//	settings, err := config.Load(configPath, cmd.Flags())
//	if err != nil {
//	    return err
//	}
//	opts, err := settings.LayoutOptions()
//
// Decoded settings are validated with go-playground/validator, so an unknown
// output format or early-date policy fails at load time rather than midway
// through a batch.
package config
