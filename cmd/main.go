// Command pantrybot распознаёт продукты на фото и ведёт кухонный инвентарь.
//
// Использование:
//
//	pantrybot bot                    # Telegram-бот
//	pantrybot scan photo.jpg --yes   # сканирование из командной строки
//	pantrybot inventory list
package main

func main() {
	Execute()
}
