package oracle

const classifyPrompt = `You route messages for a clinic appointment assistant.

Decide what the user wants and answer with ONLY one intent name:
- check_availability: asking whether a doctor or slot is free
- book_appointment: wants to book, schedule or make an appointment
- provide_patient_info: giving patient name, age or phone for a booking
- select_slot: picking one of the offered date/time slots
- end: finished, saying thanks or goodbye

Examples:
"Is Dr. John available?" -> check_availability
"Book appointment" -> book_appointment
"John Smith, 35, 555-1234" -> provide_patient_info
"05-08-2024 08:00" -> select_slot
"Thanks, bye" -> end`

const queryPrompt = `Extract appointment search parameters from the user's message.

Return ONLY a JSON object with these keys and no other text:
{"doctor_name": string|null, "specialization": string|null, "date": "DD-MM-YYYY"|null, "time": "HH:MM"|null}

Examples:
"Is Dr. Jane Doe available on 8 August 2024 at 8 PM?" -> {"doctor_name": "jane doe", "specialization": null, "date": "08-08-2024", "time": "20:00"}
"Book with a general dentist on 5 Aug 2024 8 AM" -> {"doctor_name": null, "specialization": "general_dentist", "date": "05-08-2024", "time": "08:00"}`

const patientPrompt = `Extract patient details from the user's message.

Return ONLY a JSON object with these keys and no other text:
{"patient_name": string|null, "patient_age": integer|null, "patient_phone": string|null}

Examples:
"John Smith, 35, 555-1234" -> {"patient_name": "John Smith", "patient_age": 35, "patient_phone": "555-1234"}
"Patient name is Robert Brown, he is 45 years old, contact 555-1111" -> {"patient_name": "Robert Brown", "patient_age": 45, "patient_phone": "555-1111"}`

const bookOrCheckPrompt = `Does the user want to BOOK an appointment or only CHECK availability?

If they mention booking, scheduling, reserving or making an appointment, answer BOOK.
If they are only asking whether a slot is available, answer CHECK.
Answer with ONLY "BOOK" or "CHECK".`
