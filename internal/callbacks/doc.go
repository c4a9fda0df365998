// Package callbacks содержит реестр функций вычисления операций графа.
//
// # Registry
//
// Registry отдаёт depsgraph.Callback по имени и реализует
// depsgraph.CallbackSource, поэтому подключается к графу напрямую:
//
//	reg := callbacks.DefaultRegistry()
//	g, err := depsgraph.New(types, depsgraph.WithCallbacks(reg))
//
// Граф запрашивает pose.rebuild, pose.init и pose.flush при валидации
// связей, engine.Build разрешает имена из описания сцены.
//
// # Стандартные функции
//
// Тела вычислений (решатель IK, стек ограничений, деформация геометрии)
// находятся вне этого модуля. Стандартные функции — Trace: они только
// пишут в лог имя функции и описание данных операции.
//
// # Файлы пакета
//
//   - callback.go — имена стандартных функций, Trace, Describe
//   - registry.go — Registry
package callbacks
