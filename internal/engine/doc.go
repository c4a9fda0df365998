// Package engine превращает описания сцен в графы зависимостей.
//
// Включает:
//   - decode.go   — чтение SceneSpec из HCL (с var.*), YAML и JSON
//   - discover.go — поиск файлов сцен по glob-шаблонам
//   - parser.go   — валидация SceneSpec
//   - ref.go      — ссылки на концы связей "<object>/<component>[:<bone>][/<operation>]"
//   - build.go    — сборка графа в два прохода и ValidateLinks
//   - order.go    — диагностика порядка компонентов внутри объекта
//
// Engine отвечает за понимание описания сцены; правила достройки связей
// (поза, кости, IK) находятся в пакете depsgraph.
package engine
