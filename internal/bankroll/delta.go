package bankroll

import "fmt"

// TransitionDelta é a única fonte de verdade monetária do motor: dado um par
// de status e os valores da aposta, devolve o delta (em centavos) a aplicar na
// banca. Pura e total sobre os pares válidos; par desconhecido é bug de
// programação e gera panic (a validação acontece antes, no motor).
//
// Regras por classe de transição:
//
//	none      -> pending            -stake   (reserva)
//	none      -> won                +retorno -stake
//	none      -> lost               -stake
//	pending   -> won                +retorno (a reserva -stake já foi aplicada)
//	pending   -> lost               0
//	pending   -> cancelled/none     +stake   (estorno da reserva)
//	won       -> cancelled/none     -retorno (desfaz o crédito do ganho)
//	lost      -> cancelled/none     +stake
//	won       <-> lost              composição: desfaz a antiga, aplica a nova
//	cancelled -> qualquer           tratado como none (nada reservado)
//	sem mudança de status           0
func TransitionDelta(old, next BetStatus, stakeCents, potentialReturnCents int64) int64 {
	if old == next {
		return 0
	}

	// cancelled e none são equivalentes como origem: nenhum valor retido
	if old == StatusCancelled {
		old = StatusNone
	}
	if next == StatusNone {
		next = StatusCancelled
	}

	switch old {
	case StatusNone:
		switch next {
		case StatusPending:
			return -stakeCents
		case StatusWon:
			return potentialReturnCents - stakeCents
		case StatusLost:
			return -stakeCents
		case StatusCancelled:
			return 0
		}

	case StatusPending:
		switch next {
		case StatusWon:
			return potentialReturnCents
		case StatusLost:
			return 0
		case StatusCancelled:
			return stakeCents
		}

	case StatusWon:
		switch next {
		case StatusLost:
			return -potentialReturnCents
		case StatusCancelled:
			return -potentialReturnCents
		case StatusPending:
			// desfaz o crédito do ganho, volta ao estado reservado
			return -potentialReturnCents
		}

	case StatusLost:
		switch next {
		case StatusWon:
			return potentialReturnCents
		case StatusCancelled:
			return stakeCents
		case StatusPending:
			return 0
		}
	}

	panic(fmt.Sprintf("bankroll: no delta rule for transition %q -> %q", old, next))
}

// SameStatusAdjustment cobre a edição de valores com status inalterado, que a
// tabela de transições não precifica: pendente devolve/retira a diferença da
// reserva; ganho corrige o crédito do retorno; perdido/cancelado não mexem na
// banca (o tamanho da stake já não importa).
func SameStatusAdjustment(status BetStatus, oldStakeCents, newStakeCents, oldReturnCents, newReturnCents int64) int64 {
	switch status {
	case StatusPending:
		return oldStakeCents - newStakeCents
	case StatusWon:
		return newReturnCents - oldReturnCents
	default:
		return 0
	}
}
