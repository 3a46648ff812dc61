// Package table читает входные CSV-таблицы построчно.
//
// Первая строка файла — заголовок. Строки данных нумеруются с 1.
// BOM в начале файла отбрасывается, пустые строки пропускаются.
package table
