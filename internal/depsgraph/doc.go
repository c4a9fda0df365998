// Package depsgraph строит типизированный граф зависимостей сцены.
//
// Иерархия узлов:
//   - RootNode — корень, один на граф
//   - TimeSourceNode — источник времени (глобальный или объекта)
//   - EntityNode — объект сцены, владеет компонентами
//   - ComponentNode — компонент объекта, владеет операциями
//   - PoseComponentNode / BoneComponentNode — поза арматуры и её кости
//   - OperationNode — атомарная единица вычисления
//   - SubgraphNode — встроенный граф
//
// Узлы создаются фабриками из Registry. Граф собирается в два прохода:
// сначала GetOrCreate / AddOperation / AddRelation, затем ValidateLinks,
// который переносит объявленные связи костей на операции и вставляет
// IK-решатель в цепочку вычисления костей.
//
// Граф не вычисляет операции и не строит порядок их выполнения.
package depsgraph
