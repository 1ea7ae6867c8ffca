package domain

var InteractionReferences = References{
	Types: []Option{
		{Value: string(InteractionCall), Label: "Appel téléphonique"},
		{Value: string(InteractionEmail), Label: "Email"},
		{Value: string(InteractionMeeting), Label: "Réunion"},
		{Value: string(InteractionFollowUp), Label: "Relance commerciale"},
		{Value: string(InteractionNote), Label: "Note interne"},
	},
	Directions: []Option{
		{Value: string(DirectionInbound), Label: "Entrant"},
		{Value: string(DirectionOutbound), Label: "Sortant"},
		{Value: string(DirectionBoth), Label: "Bidirectionnel"},
	},
}
