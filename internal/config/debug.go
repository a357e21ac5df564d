package config

import "os"

func IsDebug() bool {
	return os.Getenv("FINBOT_DEBUG") == "1"
}
