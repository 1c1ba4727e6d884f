package domain

// Шаг скидки: 5% диапазона [min, base] за каждый подтверждённый заказ сверх первого.
const discountStepPercent = 5

// RecomputePrice — чистая функция группового ценообразования.
//
// При ordersCount <= 1 скидки нет. Далее цена падает на 5% диапазона
// (base − min) за каждый подтверждённый заказ сверх первого и упирается
// в minMinor. Функция монотонна только относительно ordersCount: при
// отмене подтверждённого заказа счётчик падает и цена для оставшихся
// участников РАСТЁТ. Это намеренная group-buy семантика, не ошибка.
func RecomputePrice(baseMinor, minMinor int64, ordersCount int32) int64 {
	if ordersCount <= 1 {
		return baseMinor
	}

	priceRange := baseMinor - minMinor
	if priceRange <= 0 {
		return minMinor
	}

	step := priceRange * discountStepPercent / 100
	discount := step * int64(ordersCount-1)

	current := baseMinor - discount
	if current < minMinor {
		return minMinor
	}
	return current
}
