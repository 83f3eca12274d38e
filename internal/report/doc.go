// Package report выводит результаты сканирования и содержимое инвентаря
// для командной строки: Markdown для чтения человеком и JSON для скриптов.
package report
