// Package logger — единый вывод логов ringclock с префиксом и учётом quiet/verbose.
package logger

import "log"

// Quiet при true отключает информационные сообщения (Info); Error выводится всегда.
var Quiet bool

// Verbose при true включает отладочные строки (по одной на кадр).
var Verbose bool

// Info выводит сообщение с префиксом "ringclock: ", если Quiet == false.
func Info(format string, args ...interface{}) {
	if Quiet {
		return
	}
	log.Printf("ringclock: "+format, args...)
}

// Debug выводит сообщение только при Verbose (и не Quiet).
func Debug(format string, args ...interface{}) {
	if !Verbose || Quiet {
		return
	}
	log.Printf("ringclock: "+format, args...)
}

// Error выводит сообщение об ошибке с префиксом "ringclock: " всегда.
func Error(format string, args ...interface{}) {
	log.Printf("ringclock: "+format, args...)
}
