// Package snapshot снимает проверенный граф зависимостей в плоский вид.
//
// Снимок содержит объекты, операции и связи в детерминированном порядке
// и отпечаток BLAKE3 этого содержимого. Одинаковые сцены дают одинаковый
// отпечаток, что позволяет хранилищу не сохранять повторы.
//
// Для хранения и передачи снимок кодируется в JSON и сжимается zstd:
//
//	snap, err := snapshot.Export(scene.Graph)
//	data, err := snapshot.Encode(snap)
//	back, err := snapshot.Decode(data) // проверяет отпечаток
package snapshot
