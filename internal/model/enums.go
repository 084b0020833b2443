package model

// State is a conversation's position in the chat flow.
type State string

const (
	StateNew                  State = "NEW"
	StateMainMenu             State = "MAIN_MENU"
	StateAskTourDest          State = "ASK_TOUR_DEST"
	StateAskHotelDest         State = "ASK_HOTEL_DEST"
	StateAskFlightRoute       State = "ASK_FLIGHT_ROUTE"
	StateAskTravelQuestion    State = "ASK_TRAVEL_QUESTION"
	StateAskTripInspiration   State = "ASK_TRIP_INSPIRATION"
	StateAfterLinks           State = "AFTER_LINKS"
	StateAskItineraryDetails  State = "ASK_ITINERARY_DETAILS"
	StateEditItineraryDetails State = "EDIT_ITINERARY_DETAILS"
)

type Service string

const (
	ServiceTours   Service = "tours"
	ServiceHotels  Service = "hotels"
	ServiceFlights Service = "flights"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)
