package config

import "os"

func IsDebug() bool {
	return os.Getenv("HACKPAL_DEBUG") == "1"
}
