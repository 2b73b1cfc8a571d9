// Package monitor выполняет проверку здоровья сайта.
//
// Check строит по шагу на каждую страницу, API, sitemap и robots,
// запускает их параллельно, сводит статусы и отправляет одну пачку
// алертов на проверку.
package monitor
