package main

import "time"

func nowFormatted(layout string) string {
	return time.Now().Format(layout)
}
